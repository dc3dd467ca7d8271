// Package mcpserver exposes the wallet gateway and the compliance knowledge
// base as MCP tools.
//
// Handlers validate their arguments before any network I/O, run the
// acquire-token-on-demand step for authenticated endpoints, forward the call
// through the gateway client, and annotate the response with request-echo
// metadata. Errors propagate unchanged to the MCP boundary; no partial
// results are returned.
package mcpserver
