// Package service provides domain services for RollCall.
package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mzhnv/rollcall-go/internal/clock"
	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// newTestAttendanceService wires the full service stack onto mock storage
// with a fake clock pinned to start.
func newTestAttendanceService(start time.Time) (*AttendanceService, *SessionService, *mockAttendanceRepo, *clock.Fake) {
	sessionRepo := newMockSessionRepo()
	attendanceRepo := newMockAttendanceRepo()
	fake := clock.NewFake(start)
	tokens := NewTokenService(sessionRepo, &TokenServiceConfig{Clock: fake})
	sessions := NewSessionService(sessionRepo, tokens, &SessionServiceConfig{Clock: fake})
	attendance := NewAttendanceService(attendanceRepo, tokens, &AttendanceServiceConfig{Clock: fake})
	return attendance, sessions, attendanceRepo, fake
}

func TestAttendanceService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("first submission recorded", func(t *testing.T) {
		svc, sessions, _, _ := newTestAttendanceService(time.Unix(1005, 0))
		if _, err := sessions.Start(ctx, &StartSessionRequest{Name: "Lecture1"}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		resp, err := svc.Record(ctx, &RecordAttendanceRequest{
			SessionName:   "Lecture1",
			ParticipantID: "R001",
			Token:         "Lecture1|500",
			TokenTS:       1000,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		if !resp.Recorded {
			t.Error("Recorded should be true for first submission")
		}
		if resp.Message != "Attendance marked." {
			t.Errorf("Message = %q, want %q", resp.Message, "Attendance marked.")
		}
		if resp.Record == nil || resp.Record.ParticipantID != "R001" {
			t.Errorf("Record = %+v, want participant R001", resp.Record)
		}
		if resp.Record.SubmittedAt != 1005 {
			t.Errorf("SubmittedAt = %d, want 1005", resp.Record.SubmittedAt)
		}
	})

	t.Run("second submission rejected", func(t *testing.T) {
		svc, _, repo, _ := newTestAttendanceService(time.Unix(1005, 0))

		req := &RecordAttendanceRequest{
			SessionName:   "Lecture1",
			ParticipantID: "R001",
			Token:         "Lecture1|500",
			TokenTS:       1000,
		}
		first, err := svc.Record(ctx, req)
		if err != nil {
			t.Fatalf("first Record failed: %v", err)
		}
		if !first.Recorded {
			t.Fatal("first submission should be recorded")
		}

		second, err := svc.Record(ctx, req)
		if err != nil {
			t.Fatalf("second Record failed: %v", err)
		}
		if second.Recorded {
			t.Error("second submission should not be recorded")
		}
		if second.Message != "This registration number has already submitted." {
			t.Errorf("Message = %q, want duplicate message", second.Message)
		}

		count, err := repo.CountBySession(ctx, "Lecture1")
		if err != nil {
			t.Fatalf("CountBySession failed: %v", err)
		}
		if count != 1 {
			t.Errorf("ledger holds %d records, want 1", count)
		}
	})

	t.Run("different participants both recorded", func(t *testing.T) {
		svc, _, _, _ := newTestAttendanceService(time.Unix(1005, 0))

		for _, pid := range []string{"R001", "R002"} {
			resp, err := svc.Record(ctx, &RecordAttendanceRequest{
				SessionName:   "Lecture1",
				ParticipantID: pid,
				Token:         "Lecture1|500",
				TokenTS:       1000,
			})
			if err != nil {
				t.Fatalf("Record(%s) failed: %v", pid, err)
			}
			if !resp.Recorded {
				t.Errorf("Record(%s) should succeed", pid)
			}
		}
	})

	t.Run("same participant different sessions", func(t *testing.T) {
		svc, _, _, _ := newTestAttendanceService(time.Unix(1005, 0))

		for _, session := range []string{"Lecture1", "Lecture2"} {
			resp, err := svc.Record(ctx, &RecordAttendanceRequest{
				SessionName:   session,
				ParticipantID: "R001",
				Token:         session + "|500",
				TokenTS:       1000,
			})
			if err != nil {
				t.Fatalf("Record(%s) failed: %v", session, err)
			}
			if !resp.Recorded {
				t.Errorf("Record(%s) should succeed", session)
			}
		}
	})

	t.Run("participant id trimmed", func(t *testing.T) {
		svc, _, _, _ := newTestAttendanceService(time.Unix(1005, 0))

		resp, err := svc.Record(ctx, &RecordAttendanceRequest{
			SessionName:   "Lecture1",
			ParticipantID: "  R001  ",
			Token:         "Lecture1|500",
			TokenTS:       1000,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if resp.Record.ParticipantID != "R001" {
			t.Errorf("ParticipantID = %q, want trimmed %q", resp.Record.ParticipantID, "R001")
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		svc, _, _, _ := newTestAttendanceService(time.Unix(1005, 0))

		if _, err := svc.Record(ctx, &RecordAttendanceRequest{ParticipantID: "R001"}); err == nil {
			t.Error("expected error for missing session name")
		}
		if _, err := svc.Record(ctx, &RecordAttendanceRequest{SessionName: "Lecture1", ParticipantID: "   "}); err == nil {
			t.Error("expected error for blank participant id")
		}
	})

	t.Run("insert constraint backstops racing submissions", func(t *testing.T) {
		svc, _, repo, _ := newTestAttendanceService(time.Unix(1005, 0))

		req := &RecordAttendanceRequest{
			SessionName:   "Lecture1",
			ParticipantID: "R001",
			Token:         "Lecture1|500",
			TokenTS:       1000,
		}
		if _, err := svc.Record(ctx, req); err != nil {
			t.Fatalf("seed Record failed: %v", err)
		}

		// Blind the existence check so the second submission reaches the
		// insert, as a racing submission would.
		repo.skipGet = true
		resp, err := svc.Record(ctx, req)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if resp.Recorded {
			t.Error("racing submission should be reported as duplicate")
		}
		if resp.Message != "This registration number has already submitted." {
			t.Errorf("Message = %q, want duplicate message", resp.Message)
		}
	})
}

func TestAttendanceService_ConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, repo, _ := newTestAttendanceService(time.Unix(1005, 0))

	const attempts = 16
	var wg sync.WaitGroup
	recorded := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Record(ctx, &RecordAttendanceRequest{
				SessionName:   "Lecture1",
				ParticipantID: "R001",
				Token:         "Lecture1|500",
				TokenTS:       1000,
			})
			if err != nil {
				t.Errorf("Record failed: %v", err)
				return
			}
			recorded <- resp.Recorded
		}()
	}
	wg.Wait()
	close(recorded)

	wins := 0
	for ok := range recorded {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("%d submissions recorded, want exactly 1", wins)
	}

	count, err := repo.CountBySession(ctx, "Lecture1")
	if err != nil {
		t.Fatalf("CountBySession failed: %v", err)
	}
	if count != 1 {
		t.Errorf("ledger holds %d records, want 1", count)
	}
}

func TestAttendanceService_Mark(t *testing.T) {
	ctx := context.Background()

	// Full walkthrough: a session starts at Unix second 1000, a participant
	// scans the current token five seconds later, and the session ends at
	// second 2000.
	attendance, sessions, _, fake := newTestAttendanceService(time.Unix(1000, 0))

	if _, err := sessions.Start(ctx, &StartSessionRequest{Name: "Lecture1"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	current, err := sessions.CurrentToken(ctx, &CurrentTokenRequest{Name: "Lecture1"})
	if err != nil {
		t.Fatalf("CurrentToken failed: %v", err)
	}
	if current.Token != "Lecture1|500" {
		t.Fatalf("Token = %q, want %q", current.Token, "Lecture1|500")
	}

	fake.Set(time.Unix(1005, 0))
	resp, err := attendance.Mark(ctx, &MarkRequest{Token: current.Token, ParticipantID: "R001"})
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !resp.Recorded {
		t.Error("Mark should record the first submission")
	}
	if resp.Record.TokenTS != 1000 {
		t.Errorf("TokenTS = %d, want 1000", resp.Record.TokenTS)
	}
	if resp.Record.SessionName != "Lecture1" {
		t.Errorf("SessionName = %q, want from token", resp.Record.SessionName)
	}

	// Resubmission is a duplicate outcome.
	dup, err := attendance.Mark(ctx, &MarkRequest{Token: current.Token, ParticipantID: "R001"})
	if err != nil {
		t.Fatalf("duplicate Mark failed: %v", err)
	}
	if dup.Recorded {
		t.Error("duplicate Mark should not record")
	}

	// After the session ends a fresh token is refused.
	fake.Set(time.Unix(2000, 0))
	if _, err := sessions.End(ctx, &EndSessionRequest{Name: "Lecture1"}); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	_, err = attendance.Mark(ctx, &MarkRequest{Token: "Lecture1|1000", ParticipantID: "R002"})
	if !domain.IsDomainError(err, "RC-SESS-4100") {
		t.Errorf("Mark after end: error = %v, want session ended", err)
	}

	// A stale token is refused before anything else is consulted.
	_, err = attendance.Mark(ctx, &MarkRequest{Token: "Lecture1|500", ParticipantID: "R002"})
	if !domain.IsDomainError(err, "RC-TOKN-4100") {
		t.Errorf("stale Mark: error = %v, want token expired", err)
	}

	// Garbage is malformed.
	_, err = attendance.Mark(ctx, &MarkRequest{Token: "garbage", ParticipantID: "R002"})
	if !domain.IsDomainError(err, "RC-TOKN-4000") {
		t.Errorf("malformed Mark: error = %v, want malformed token", err)
	}
}

func TestAttendanceService_ListBySession(t *testing.T) {
	ctx := context.Background()
	svc, _, _, fake := newTestAttendanceService(time.Unix(1000, 0))

	// Submissions arrive out of participant order; listing follows
	// submission time.
	for i, pid := range []string{"R003", "R001", "R002"} {
		fake.Set(time.Unix(int64(1000+i*10), 0))
		if _, err := svc.Record(ctx, &RecordAttendanceRequest{
			SessionName:   "Lecture1",
			ParticipantID: pid,
			Token:         "Lecture1|500",
			TokenTS:       1000,
		}); err != nil {
			t.Fatalf("Record(%s) failed: %v", pid, err)
		}
	}

	resp, err := svc.ListBySession(ctx, "Lecture1")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("Total = %d, want 3", resp.Total)
	}

	wantOrder := []string{"R003", "R001", "R002"}
	for i, record := range resp.Items {
		if record.ParticipantID != wantOrder[i] {
			t.Errorf("Items[%d] = %q, want %q", i, record.ParticipantID, wantOrder[i])
		}
	}
}

func TestAttendanceService_ExportCSV(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestAttendanceService(time.Unix(1005, 0))

	if _, err := svc.Record(ctx, &RecordAttendanceRequest{
		SessionName:   "Lecture1",
		ParticipantID: "R001",
		Token:         "Lecture1|500",
		TokenTS:       1000,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf, "Lecture1"); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("CSV has %d lines, want 2", len(lines))
	}
	if lines[0] != "reg_no,session_name,timestamp" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "R001,Lecture1,") {
		t.Errorf("row = %q, want participant and session first", lines[1])
	}
	wantTime := time.Unix(1005, 0).Format("2006-01-02 15:04:05")
	if !strings.HasSuffix(lines[1], wantTime) {
		t.Errorf("row = %q, want timestamp %q", lines[1], wantTime)
	}
}
