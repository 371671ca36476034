// Package httpserver provides the HTTP/HTTPS front of the RollCall
// daemon: the middleware chain, the router wiring it to the handler
// package, and a thin server wrapper with sane timeouts.
//
// The chain order is fixed by NewRouter. Recovery sits outermost so a
// panic anywhere below still answers JSON; per-client rate limiting
// protects the open submission endpoint; audit logging sits innermost.
//
// TLS is configured by the caller through SetTLSConfig, typically with
// a certificate watcher's GetCertificate callback so rotated
// certificates are picked up without a restart.
package httpserver
