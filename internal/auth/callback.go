package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

const successPage = `<html>
<head><title>Authentication Successful</title></head>
<body>
<h1>Authentication Successful</h1>
<p>You have successfully authenticated. You can close this window now.</p>
</body>
</html>`

const errorPage = `<html>
<head><title>Authentication Error</title></head>
<body>
<h1>Authentication Error</h1>
<p>%s</p>
<p>You can close this window now.</p>
</body>
</html>`

// callbackResult is the outcome of a single OAuth redirect.
type callbackResult struct {
	code  string
	state string
	err   error
}

// CallbackServer is a one-shot local HTTP listener that receives the
// OAuth redirect and hands the authorization code back to the caller.
type CallbackServer struct {
	port int
	path string

	once   sync.Once
	result chan callbackResult
}

// NewCallbackServer creates a callback listener for 127.0.0.1:port.
func NewCallbackServer(port int, path string) *CallbackServer {
	if path == "" {
		path = "/oauth/callback"
	}
	return &CallbackServer{
		port:   port,
		path:   path,
		result: make(chan callbackResult, 1),
	}
}

// Wait serves until the first callback arrives or ctx is done, then
// returns the received code and state.
func (s *CallbackServer) Wait(ctx context.Context) (code, state string, err error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return "", "", fmt.Errorf("starting callback listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-s.result:
		return res.code, res.state, res.err
	case err := <-serveErr:
		return "", "", fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errCode := q.Get("error"); errCode != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = "unknown error"
		}
		fmt.Fprintf(w, errorPage, fmt.Sprintf("%s: %s", errCode, desc))
		s.deliver(callbackResult{err: &types.AuthError{
			Reason: fmt.Sprintf("identity provider returned %s: %s", errCode, desc),
		}})
		return
	}

	code := q.Get("code")
	if code == "" {
		fmt.Fprintf(w, errorPage, "no authorization code received")
		s.deliver(callbackResult{err: &types.AuthError{Reason: "no authorization code received"}})
		return
	}

	fmt.Fprint(w, successPage)
	s.deliver(callbackResult{code: code, state: q.Get("state")})
}

// deliver hands over the first result only; stray repeat callbacks after
// the redirect (browser refreshes) are ignored.
func (s *CallbackServer) deliver(res callbackResult) {
	s.once.Do(func() {
		s.result <- res
	})
}

// callbackPath extracts the path component of the configured redirect
// URI so the listener serves exactly what was registered with the
// identity provider.
func callbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" {
		return "/oauth/callback"
	}
	return u.Path
}
