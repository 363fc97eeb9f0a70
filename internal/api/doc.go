// Package api implements the HTTP control API and the client WebSocket
// endpoint for Pushgate.
//
// This package provides:
//   - /nodejs/* endpoints backend applications call to publish messages and
//     manage channels, tokens and presence lists
//   - a WebSocket endpoint clients connect to, authenticated with a signed
//     token carrying the user id and session token
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     service key)
//
// # Architecture
//
// The server is a thin edge over push.Manager. Handlers validate transport
// concerns (missing parameters, malformed JSON), call exactly one manager
// operation and translate its error kind into the response messages
// backends already understand:
//
//	{"status": "success", "sent": 3}
//	{"status": "failed", "error": "Invalid channel name."}
//
// Every /nodejs route requires the shared secret in the NodejsServiceKey
// header. WebSocket clients instead present a JWT in the token query
// parameter; each accepted socket is registered with the manager as one
// connection and unregistered when it closes.
//
// Administrative changes are written to the audit trail when a recorder is
// configured.
package api
