// Package api is the authenticated HTTP client for the remote issues
// API.
//
// Every request attaches a bearer token from the TokenSource. When the
// remote answers 401, the client forces exactly one token refresh and
// retries exactly once; a second rejection is surfaced as an APIError.
// The retry budget is an explicit RetryPolicy value, not ad hoc control
// flow, so tests can tighten or widen it.
//
// Error mapping:
//
//   - 401 after the retry budget: types.APIError (or the AuthError from
//     a failed refresh)
//   - any other non-2xx: types.APIError with the remote error payload,
//     surfaced immediately
//   - configured deadline exceeded: types.TimeoutError
package api
