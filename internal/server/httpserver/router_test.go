package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mzhnv/rollcall-go/internal/clock"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/storage/memory"
	"github.com/mzhnv/rollcall-go/internal/telemetry/logger"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

func newTestServices(t *testing.T) (*service.SessionService, *service.AttendanceService, *service.TokenService) {
	t.Helper()

	clk := clock.NewFake(time.Unix(1700000000, 0))
	store := memory.New()
	tokens := service.NewTokenService(store, &service.TokenServiceConfig{
		RotationPeriod: 2 * time.Second,
		ValidityWindow: 30 * time.Second,
		Clock:          clk,
	})
	sessions := service.NewSessionService(store, tokens, &service.SessionServiceConfig{Clock: clk})
	attendance := service.NewAttendanceService(store, tokens, &service.AttendanceServiceConfig{Clock: clk})
	return sessions, attendance, tokens
}

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	lgr, err := logger.New(logger.Config{Level: "error", Format: "json", Output: io.Discard})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return lgr
}

func TestNewRouter_RequiresServices(t *testing.T) {
	if _, err := NewRouter(RouterConfig{}); err == nil {
		t.Error("expected error for empty router config")
	}
}

func TestNewRouter_FullPipeline(t *testing.T) {
	sessions, attendance, tokens := newTestServices(t)
	router, err := NewRouter(RouterConfig{
		Sessions:       sessions,
		Attendance:     attendance,
		Tokens:         tokens,
		Metrics:        metric.New(),
		Logger:         quietLogger(t),
		AllowedOrigins: []string{"https://attendance.example.edu"},
		RateRPS:        100,
		RateBurst:      100,
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	requestID := rec.Header().Get("X-Request-ID")
	if !strings.HasPrefix(requestID, "req-") {
		t.Errorf("expected generated request ID, got %q", requestID)
	}

	var envelope struct {
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if envelope.Code != "OK" {
		t.Errorf("expected OK envelope, got %q", envelope.Code)
	}
	if envelope.RequestID != requestID {
		t.Errorf("envelope request ID %q does not match header %q", envelope.RequestID, requestID)
	}
}

func TestNewRouter_RateLimitApplies(t *testing.T) {
	sessions, attendance, tokens := newTestServices(t)
	router, err := NewRouter(RouterConfig{
		Sessions:   sessions,
		Attendance: attendance,
		Tokens:     tokens,
		Logger:     quietLogger(t),
		RateRPS:    1,
		RateBurst:  1,
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	request := func() int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "198.51.100.20:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := request(); code != http.StatusTooManyRequests {
		t.Errorf("second request should be limited, got %d", code)
	}
}

func TestNewRouter_MetricsUsePatternRoutes(t *testing.T) {
	sessions, attendance, tokens := newTestServices(t)
	m := metric.New()
	router, err := NewRouter(RouterConfig{
		Sessions:   sessions,
		Attendance: attendance,
		Tokens:     tokens,
		Metrics:    m,
		Logger:     quietLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/sessions/phys-101", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/sessions/chem-202", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `route="/sessions/{name}"`) {
		t.Error("expected pattern route label in exposition")
	}
	if strings.Contains(body, `route="/sessions/phys-101"`) {
		t.Error("path values must not leak into route labels")
	}
}

func TestRouter_EndToEnd(t *testing.T) {
	sessions, attendance, tokens := newTestServices(t)
	router, err := NewRouter(RouterConfig{
		Sessions:   sessions,
		Attendance: attendance,
		Tokens:     tokens,
		Logger:     quietLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions", "application/json",
		strings.NewReader(`{"name":"phys-101"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 over the wire, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); !strings.HasPrefix(got, "req-") {
		t.Errorf("expected request ID header, got %q", got)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"restarted":false`) {
		t.Errorf("unexpected body: %s", body)
	}
}
