// Package mcpserver implements the Model Context Protocol (MCP) server that
// exposes construction issue tracking to AI assistants.
//
// The server registers nine tools:
//   - create_issue: Create an issue from plain-language field values
//   - update_issue: Patch fields on an existing issue
//   - list_issues: List issues with filters and pagination
//   - get_issue: Fetch one issue by UUID or display number
//   - search_issues: Free-text search across issue titles and descriptions
//   - add_comment: Attach a comment to an issue
//   - list_issue_types: Show the project's issue types and subtypes
//   - list_statuses: Show workflow statuses, optionally scoped to a subtype
//   - list_custom_attributes: Show custom field definitions
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. The server reads
// requests on stdin and writes responses to stdout, so all logging goes
// to stderr.
//
// # Field Resolution
//
// The mutation tools accept human wording rather than IDs. create_issue
// resolves "issue_type", "status", and custom attribute names against the
// project's cached schema before calling the remote API; see the mapper
// package. Lookup tools read the same cache, so an assistant can discover
// the valid values a project accepts before creating anything.
//
// # Error Handling
//
// Handlers return JSON-RPC errors with these codes:
//   - -32602: Invalid params (missing or malformed arguments)
//   - -32603: Internal error
//   - -32001: Authentication failed; data carries reauthorization_required
//   - -32002: Validation failed; data carries every field violation
//   - -32003: Remote API rejected the request; data carries the HTTP status
//   - -32004: Request deadline exceeded
//
// A validation error reports all violations at once so the caller can fix
// its input in a single round trip:
//
//	{
//	  "error": {
//	    "code": -32002,
//	    "message": "input could not be mapped to valid fields",
//	    "data": {
//	      "violations": [
//	        {"field": "issue_type", "value": "qual", "reason": "ambiguous", "allowed": [...]},
//	        {"field": "due_date", "value": "next week", "reason": "not an ISO 8601 date"}
//	      ]
//	    }
//	  }
//	}
package mcpserver
