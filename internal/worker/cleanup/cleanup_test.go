package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type mockPurger struct {
	deleteExpiredFn func(ctx context.Context) (int64, error)
	calls           atomic.Int64
}

func (m *mockPurger) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockRecorder struct {
	purged atomic.Int64
}

func (m *mockRecorder) RecordSessionsPurged(count int64) {
	m.purged.Add(count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestNewPurgeJob_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	job := NewPurgeJob(&mockPurger{}, nil, newTestLogger(&buf))
	if job == nil {
		t.Fatal("expected non-nil PurgeJob")
	}
}

func TestPurgeJob_Run_DeletesExpiredSessions(t *testing.T) {
	purger := &mockPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
	}
	recorder := &mockRecorder{}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, recorder, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := purger.calls.Load(); got != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", got)
	}
	if got := recorder.purged.Load(); got != 7 {
		t.Errorf("recorded purged count = %d, want 7", got)
	}
}

// 削除件数がログに記録されることを検証
func TestPurgeJob_Run_LogsDeletedCount(t *testing.T) {
	purger := &mockPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, nil, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, `"deleted_count":42`) {
		t.Errorf("log should contain deleted_count=42, got: %s", logOutput)
	}
}

// 削除対象がない場合もエラーにならないことを検証（冪等性）
func TestPurgeJob_Run_Idempotent_ZeroRows(t *testing.T) {
	purger := &mockPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, nil
		},
	}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, nil, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() with zero rows should not error, got %v", err)
	}
}

func TestPurgeJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	purger := &mockPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, nil, newTestLogger(&buf))
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error on DB failure")
	}

	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("log should contain the underlying error, got: %s", buf.String())
	}
}

// recorderがnilでもパニックしないことを検証
func TestPurgeJob_Run_NilRecorder(t *testing.T) {
	purger := &mockPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 3, nil
		},
	}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, nil, newTestLogger(&buf))
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

// Startが起動直後に1回実行し、キャンセルで停止することを検証
func TestPurgeJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	purger := &mockPurger{}
	var buf bytes.Buffer

	job := NewPurgeJob(purger, nil, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.After(2 * time.Second)
	for purger.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job did not run after start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop after context cancellation")
	}

	if got := purger.calls.Load(); got != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", got)
	}
}
