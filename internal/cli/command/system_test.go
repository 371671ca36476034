package command

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestSystemCommand_Structure(t *testing.T) {
	cmd := SystemCommand()
	if cmd == nil {
		t.Fatal("SystemCommand returned nil")
	}

	if cmd.Name != "system" {
		t.Errorf("Name = %q, want %q", cmd.Name, "system")
	}
	if len(cmd.Aliases) == 0 || cmd.Aliases[0] != "sys" {
		t.Error("expected alias 'sys'")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
		if sub.Action == nil {
			t.Errorf("%s command should have an action", sub.Name)
		}
	}

	for _, name := range []string{"health", "version", "metrics"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func healthHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		okResponse(w, healthPayload{
			Status:        status,
			Version:       "dev",
			UptimeSeconds: 90,
		})
	}
}

func TestSystemHealth_Success(t *testing.T) {
	server := newMockServer()
	defer server.Close()
	server.handle("/health", healthHandler("healthy"))

	ctx := testContext(server)
	if err := systemHealth(ctx); err != nil {
		t.Fatalf("systemHealth() error = %v", err)
	}
}

func TestSystemHealth_JSONOutput(t *testing.T) {
	server := newMockServer()
	defer server.Close()
	server.handle("/health", healthHandler("healthy"))

	ctx := testContext(server, "--output", "json")
	if err := systemHealth(ctx); err != nil {
		t.Fatalf("systemHealth() error = %v", err)
	}
}

func TestSystemHealth_Unhealthy(t *testing.T) {
	server := newMockServer()
	defer server.Close()
	server.handle("/health", healthHandler("degraded"))

	ctx := testContext(server)
	if err := systemHealth(ctx); err == nil {
		t.Error("systemHealth() should report an unhealthy server as an error")
	}
}

func TestSystemHealth_Unreachable(t *testing.T) {
	server := newMockServer()
	server.Close()

	ctx := testContext(server)
	if err := systemHealth(ctx); err == nil {
		t.Error("systemHealth() expected error for unreachable server")
	}
}

func TestSystemVersion_Success(t *testing.T) {
	server := newMockServer()
	defer server.Close()
	server.handle("/health", healthHandler("healthy"))

	ctx := testContext(server)
	if err := systemVersion(ctx); err != nil {
		t.Fatalf("systemVersion() error = %v", err)
	}
}

func TestSystemVersion_ServerDown(t *testing.T) {
	server := newMockServer()
	server.Close()

	// The client version still prints when the server is unreachable.
	ctx := testContext(server)
	if err := systemVersion(ctx); err != nil {
		t.Fatalf("systemVersion() should not fail on unreachable server: %v", err)
	}
}

func TestSystemMetrics_Success(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintln(w, "# HELP rollcall_sessions_started_total Sessions started.")
		fmt.Fprintln(w, "rollcall_sessions_started_total 3")
		fmt.Fprintln(w, "go_goroutines 12")
	})

	ctx := makeTestContext(server, map[string]any{"match": "rollcall_"}, nil)
	if err := systemMetrics(ctx); err != nil {
		t.Fatalf("systemMetrics() error = %v", err)
	}
}

func TestSystemMetrics_ServerError(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/metrics", func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusInternalServerError, "RC-SYS-5000", "Internal server error.")
	})

	ctx := testContext(server)
	err := systemMetrics(ctx)
	if err == nil {
		t.Fatal("systemMetrics() expected error")
	}
	if !strings.Contains(err.Error(), "RC-SYS-5000") {
		t.Errorf("error = %v, want the server's error code", err)
	}
}
