package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/storage/memory"
)

// SessionCounts defines the session counts for full-scale benchmarks.
var SessionCounts = []int{5000, 10000, 50000, 100000, 200000}

// SmallSessionCounts for quick benchmarks.
var SmallSessionCounts = []int{1000, 5000, 10000}

// RecordCounts defines attendance record counts per session.
var RecordCounts = []int{100, 1000, 10000}

// benchPeriod is the token rotation period in seconds.
const benchPeriod = 2

// benchEpoch is the instant every prefilled session starts at. Pinning it
// keeps the interval math deterministic across runs.
var benchEpoch = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

// benchToken returns the token a session displays at benchEpoch.
func benchToken(name string) string {
	return domain.EncodeToken(name, domain.IntervalAt(benchEpoch.Unix(), benchPeriod))
}

// newRecord builds an attendance record submitted at benchEpoch.
func newRecord(sessionName, participantID string) *domain.AttendanceRecord {
	interval := domain.IntervalAt(benchEpoch.Unix(), benchPeriod)
	record, _ := domain.NewAttendanceRecord(
		sessionName,
		participantID,
		domain.EncodeToken(sessionName, interval),
		domain.IntervalTimestamp(interval, benchPeriod),
		benchEpoch,
	)
	return record
}

// prefillSessions fills a store with active sessions session-0..count-1.
func prefillSessions(ctx context.Context, store *memory.Store, count int) []*domain.Session {
	sessions := make([]*domain.Session, count)
	for i := 0; i < count; i++ {
		sessions[i] = domain.NewSession(fmt.Sprintf("session-%d", i), benchEpoch)
		store.Upsert(ctx, sessions[i])
	}
	return sessions
}

// prefillRecords inserts count attendance records into a single session.
func prefillRecords(ctx context.Context, store *memory.Store, sessionName string, count int) []*domain.AttendanceRecord {
	records := make([]*domain.AttendanceRecord, count)
	for i := 0; i < count; i++ {
		records[i] = newRecord(sessionName, fmt.Sprintf("P%06d", i))
		store.Insert(ctx, records[i])
	}
	return records
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}
