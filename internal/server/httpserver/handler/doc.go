// Package handler implements the HTTP handlers for the RollCall API.
//
// Every JSON endpoint wraps its payload in the Response envelope with a
// request ID and a machine-readable code. Domain error codes map onto
// HTTP statuses through their numeric suffix, so RC-SESS-4040 answers
// 404 and RC-TOKN-4100 answers 410.
//
// Routes:
//
//	GET  /health                            liveness
//	GET  /ready                             readiness (storage probe)
//	POST /sessions                          start or restart a session
//	GET  /sessions                          list sessions
//	GET  /sessions/{name}                   fetch one session
//	POST /sessions/{name}/end               end a session
//	GET  /sessions/{name}/token             current rotating token
//	POST /attendance                        submit a mark
//	GET  /sessions/{name}/attendance        list records
//	GET  /sessions/{name}/attendance/export CSV download
//	GET  /config                            sanitized configuration
//	GET  /metrics                           Prometheus metrics
//
// Session names appear as single path segments; names containing "/"
// must be percent-encoded by the client.
package handler
