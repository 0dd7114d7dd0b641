// Package types defines the error taxonomy shared across the server.
//
// Four error kinds cover every failure surfaced to a tool caller:
//
//   - AuthError: no usable token; Reauth marks a rejected refresh token,
//     which requires a full interactive re-authorization.
//   - ValidationError: an issue request could not be mapped onto the
//     project schema; carries the complete list of violations.
//   - APIError: the remote API rejected the request; carries the remote
//     status and error payload.
//   - TimeoutError: an outbound call exceeded its configured deadline.
//
// Handlers distinguish them with errors.As and translate each into a
// structured MCP error; nothing is surfaced as an unstructured crash.
package types
