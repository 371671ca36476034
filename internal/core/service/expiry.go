// Package service provides domain services for RollCall.
//
// The expiry sweeper ends sessions whose auto-expiry deadline passed.
package service

import (
	"context"
	"time"
)

// SweepLogger is the minimal logging surface the sweeper needs. It is
// satisfied by both telemetry/logger.Logger and *slog.Logger.
type SweepLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExpirySweeper periodically ends sessions whose ExpiresAt deadline has
// passed. Sessions started without a TTL are never touched.
type ExpirySweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   SweepLogger
	stopCh   chan struct{}
	doneCh   chan struct{}

	// OnEnded, when set, observes each sweep's ended-session count.
	// Must be set before Start.
	OnEnded func(count int)
}

// NewExpirySweeper creates a sweeper that checks deadlines every interval.
func NewExpirySweeper(sessions *SessionService, interval time.Duration, logger SweepLogger) *ExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpirySweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (w *ExpirySweeper) Start() {
	go w.loop()
}

// Stop signals the loop to exit and waits for it to finish.
func (w *ExpirySweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *ExpirySweeper) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			ended, err := w.sessions.ExpireDue(ctx)
			cancel()
			if err != nil {
				w.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if ended > 0 {
				w.logger.Info("expired sessions ended", "count", ended)
				if w.OnEnded != nil {
					w.OnEnded(ended)
				}
			}

		case <-w.stopCh:
			return
		}
	}
}
