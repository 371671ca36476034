package httpserver

import (
	"net/http"

	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/server/config"
	"github.com/mzhnv/rollcall-go/internal/server/httpserver/handler"
	"github.com/mzhnv/rollcall-go/internal/telemetry/logger"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

// RouterConfig assembles the services and middleware knobs for the API.
type RouterConfig struct {
	Sessions   *service.SessionService
	Attendance *service.AttendanceService
	Tokens     *service.TokenService

	// AppConfig enables GET /config when set.
	AppConfig *config.ServerConfig

	// Metrics enables GET /metrics and request instrumentation when set.
	Metrics *metric.Metrics

	Logger logger.Logger

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string

	// RateRPS enables per-client rate limiting when positive.
	RateRPS   float64
	RateBurst int
}

// NewRouter builds the full request pipeline:
//
//	Recover -> CORS -> RequestID -> Metrics -> RateLimit -> Audit -> handler
//
// Metrics sits outside the rate limiter so rejected requests still
// count; audit logging sits innermost so its duration covers handler
// time only.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	h, err := handler.New(handler.Config{
		Sessions:   cfg.Sessions,
		Attendance: cfg.Attendance,
		Tokens:     cfg.Tokens,
		AppConfig:  cfg.AppConfig,
		Metrics:    cfg.Metrics,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	middlewares := []Middleware{Recover(cfg.Logger)}
	if len(cfg.AllowedOrigins) > 0 {
		middlewares = append(middlewares, CORS(cfg.AllowedOrigins))
	}
	middlewares = append(middlewares, RequestID())
	if cfg.Metrics != nil {
		middlewares = append(middlewares, Metrics(cfg.Metrics, h.Route))
	}
	if cfg.RateRPS > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateRPS, cfg.RateBurst))
	}
	middlewares = append(middlewares, Audit(cfg.Logger))

	return Chain(middlewares...)(h), nil
}
