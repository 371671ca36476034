// Package shutdown provides graceful shutdown for RollCall.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(httpServer.Shutdown)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close() })
//	err := h.Wait() // Blocks until SIGINT/SIGTERM, then runs hooks
package shutdown
