package timing

import (
	"context"
	"testing"
	"time"
)

func TestNewPeriodicSleeper_RejectsNonPositiveRate(t *testing.T) {
	if _, err := NewPeriodicSleeper(0); err == nil {
		t.Error("expected error for hz=0")
	}
	if _, err := NewPeriodicSleeper(-5); err == nil {
		t.Error("expected error for negative hz")
	}
}

func TestPeriodicSleeper_Period(t *testing.T) {
	s, err := NewPeriodicSleeper(20)
	if err != nil {
		t.Fatalf("NewPeriodicSleeper: %v", err)
	}
	if s.Period() != 50*time.Millisecond {
		t.Errorf("period: got %v, want 50ms", s.Period())
	}
}

func TestPeriodicSleeper_SleepReturnsTrueOnTick(t *testing.T) {
	s, err := NewPeriodicSleeper(200)
	if err != nil {
		t.Fatalf("NewPeriodicSleeper: %v", err)
	}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if !s.Sleep(context.Background()) {
			t.Fatal("Sleep returned false without cancellation")
		}
	}
	elapsed := time.Since(start)
	if elapsed < 10*time.Millisecond {
		t.Errorf("3 ticks at 200Hz finished too fast: %v", elapsed)
	}
}

func TestPeriodicSleeper_SleepReturnsFalseWhenCancelled(t *testing.T) {
	s, err := NewPeriodicSleeper(1) // 1s period, must exit long before that
	if err != nil {
		t.Fatalf("NewPeriodicSleeper: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan bool, 1)
	go func() { done <- s.Sleep(ctx) }()
	select {
	case ok := <-done:
		if ok {
			t.Error("Sleep returned true on cancelled context")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Sleep did not exit promptly on cancellation")
	}
}

func TestMonotonicMS_Advances(t *testing.T) {
	a := MonotonicMS()
	time.Sleep(5 * time.Millisecond)
	b := MonotonicMS()
	if b < a {
		t.Errorf("monotonic clock went backwards: %d -> %d", a, b)
	}
}
