package httpserver

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// Connection timeouts. No write timeout is set because the token
// endpoint may be polled over slow links and CSV exports stream.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Server wraps http.Server with the timeouts and TLS plumbing the
// daemon needs.
type Server struct {
	httpServer *http.Server
}

// New creates a server on the given address.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetTLSConfig installs a TLS configuration before serving. When the
// configuration carries a GetCertificate callback, ListenAndServeTLS
// may be called with empty file paths.
func (s *Server) SetTLSConfig(cfg *tls.Config) {
	s.httpServer.TLSConfig = cfg
}

// ListenAndServe starts serving plain HTTP. It blocks until Shutdown
// is called or the listener fails.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ListenAndServeTLS starts serving HTTPS. It blocks until Shutdown is
// called or the listener fails.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown drains in-flight requests and stops the server. The context
// bounds how long draining may take.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
