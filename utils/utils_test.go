package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	if !s.Add(42) {
		t.Error("first Add should return true")
	}
	if s.Add(42) {
		t.Error("second Add of same id should return false")
	}
	if !s.Contains(42) || s.Contains(43) {
		t.Error("Contains reports wrong membership")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add(7) {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, Logger: NewLoggerTo(&bytes.Buffer{})}
	calls := 0
	boom := errors.New("connection reset")

	err := r.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return boom
	})

	if calls != 5 {
		t.Errorf("calls = %d; want 5", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the last failure, got %v", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5}
	calls := 0

	err := r.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryCancellationIsNotRetried(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := r.Do(ctx, "fetch", func(context.Context) error {
		calls++
		cancel()
		return errors.New("interrupted")
	})

	if calls != 1 {
		t.Errorf("calls = %d; want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestRetryPermanentStopsAtOnce(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour}
	calls := 0
	notFound := errors.New("Not Found")

	err := r.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return Permanent(notFound)
	})

	if calls != 1 {
		t.Errorf("calls = %d; want 1", calls)
	}
	if !errors.Is(err, notFound) {
		t.Errorf("err = %v; want it to wrap %v", err, notFound)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestPacerBounds(t *testing.T) {
	p := NewPacer(50 * time.Millisecond)
	for i := 0; i < 1000; i++ {
		d := p.Next()
		if d < 0 || d >= 50*time.Millisecond {
			t.Fatalf("pause %v outside [0, 50ms)", d)
		}
	}

	if NewPacer(0).Next() != 0 {
		t.Error("zero max should disable pausing")
	}
}

func TestPacerWaitHonoursCancellation(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly after cancellation")
	}
}

func TestLoggerLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf)
	l.SetLevel(ParseLevel("warn"))

	l.Info("[test] hidden")
	l.Warn("[test] shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "[test] shown 1") {
		t.Errorf("warn line missing, got %q", out)
	}
}
