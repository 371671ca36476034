package httpserver

import (
	"context"
	"crypto/tls"
	"net/http"
	"testing"
	"time"
)

func TestServer_New(t *testing.T) {
	srv := New("127.0.0.1:5080", http.NotFoundHandler())

	if srv.Addr() != "127.0.0.1:5080" {
		t.Errorf("expected configured address, got %q", srv.Addr())
	}
}

func TestServer_SetTLSConfig(t *testing.T) {
	srv := New("127.0.0.1:5080", http.NotFoundHandler())
	srv.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})

	if srv.httpServer.TLSConfig == nil {
		t.Fatal("expected TLS config installed")
	}
	if srv.httpServer.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Error("expected TLS config carried through")
	}
}

func TestServer_ShutdownIdle(t *testing.T) {
	srv := New("127.0.0.1:5080", http.NotFoundHandler())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("shutdown of idle server should succeed, got %v", err)
	}
}
