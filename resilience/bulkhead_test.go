package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected atomic.Int32
	bh := NewBulkhead(BulkheadConfig{
		Name:          "jobs",
		MaxConcurrent: 1,
		OnReject:      func(string) { rejected.Add(1) },
	})
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := bh.Execute(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected.Load() != 1 {
		t.Errorf("expected OnReject once, got %d", rejected.Load())
	}
	close(release)
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: -1})
	started := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()
	<-started

	ran := false
	if err := bh.Execute(context.Background(), func(context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected queued call to run")
	}
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	err := bh.Execute(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_RespectsContextWhileQueued(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: -1})
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := bh.Execute(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestBulkhead_AvailableAndInUse(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	if bh.Available() != 2 || bh.InUse() != 0 {
		t.Fatalf("unexpected initial state %d/%d", bh.Available(), bh.InUse())
	}
	_ = bh.Execute(context.Background(), func(context.Context) error {
		if bh.InUse() != 1 || bh.Available() != 1 {
			t.Errorf("unexpected state inside call %d/%d", bh.Available(), bh.InUse())
		}
		return nil
	})
	if bh.InUse() != 0 {
		t.Errorf("expected slot released, in use %d", bh.InUse())
	}
}

func TestExecuteWithResult(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	got, err := ExecuteWithResult(context.Background(), bh, func(context.Context) (string, error) {
		return "job-1", nil
	})
	if err != nil || got != "job-1" {
		t.Errorf("got (%q, %v)", got, err)
	}
}
