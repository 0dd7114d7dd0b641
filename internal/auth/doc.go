// Package auth implements the OAuth token lifecycle: the 3-legged
// authorization-code flow (with PKCE), the refresh grant, durable token
// storage, and a manager that hands out access tokens guaranteed valid
// beyond a safety margin.
//
// # Components
//
//   - Flow: drives authorize/exchange/refresh against the identity
//     provider and writes results to the Store.
//   - Store: persists the token pair; SQLiteStore survives restarts,
//     MemoryStore backs tests.
//   - CallbackServer: one-shot local HTTP listener that receives the
//     OAuth redirect during interactive authorization.
//   - Manager: the only component consumers talk to at request time.
//     AccessToken never returns a token expiring within the margin, and
//     refreshes are collapsed through singleflight so a refresh token is
//     never spent twice concurrently.
//
// # Token persistence
//
// Tokens are kept in a single-row SQLite table. Two drivers are
// supported via build tags: the default pure Go build uses
// modernc.org/sqlite, and `-tags cgosqlite` selects mattn/go-sqlite3.
//
// # Failure semantics
//
// A rejected refresh token is terminal: the store is cleared and the
// resulting AuthError carries Reauth=true, prompting the operator to run
// the interactive flow again. A transport failure or provider outage
// while refreshing is not terminal; the stored token is kept so a later
// attempt can succeed.
package auth
