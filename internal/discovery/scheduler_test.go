package discovery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTicker hands the scheduler a channel the test drives by hand
type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newFakeScheduler(trigger func()) (*Scheduler, *fakeTicker) {
	ft := &fakeTicker{ch: make(chan time.Time)}
	s := NewScheduler(time.Hour, trigger)
	s.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ft.ch, func() { ft.stopped.Store(true) }
	}
	return s, ft
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_TriggersImmediatelyThenPerTick(t *testing.T) {
	var calls atomic.Int32
	s, ft := newFakeScheduler(func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, "immediate trigger", func() bool { return calls.Load() == 1 })

	for i := 0; i < 3; i++ {
		ft.ch <- time.Now()
	}
	waitFor(t, "tick triggers", func() bool { return calls.Load() == 4 })

	cancel()
	<-done

	if !ft.stopped.Load() {
		t.Error("ticker not stopped after Run returned")
	}
}

func TestScheduler_TicksContinueAcrossManualTriggers(t *testing.T) {
	var calls atomic.Int32
	s, ft := newFakeScheduler(func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, "immediate trigger", func() bool { return calls.Load() == 1 })

	want := int32(1)
	for i := 0; i < 3; i++ {
		s.TriggerOnce()
		s.TriggerOnce()
		want += 2
		ft.ch <- time.Now()
		want++
		w := want
		waitFor(t, "tick after manual triggers", func() bool { return calls.Load() == w })
	}

	cancel()
	<-done
	if got := calls.Load(); got != want {
		t.Errorf("trigger called %d times, want %d", got, want)
	}
}

func TestScheduler_NoTriggerAfterCancel(t *testing.T) {
	var calls atomic.Int32
	s, ft := newFakeScheduler(func() { calls.Add(1) })

	// Buffered so a tick is pending when Cancel runs
	ft.ch = make(chan time.Time, 1)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	waitFor(t, "immediate trigger", func() bool { return calls.Load() == 1 })

	s.Cancel()
	ft.ch <- time.Now()
	<-done

	if got := calls.Load(); got != 1 {
		t.Errorf("trigger called %d times after Cancel, want 1", got)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	var calls atomic.Int32
	s, _ := newFakeScheduler(func() { calls.Add(1) })

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	waitFor(t, "immediate trigger", func() bool { return calls.Load() == 1 })

	s.Cancel()
	s.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}

func TestScheduler_RunAfterCancelDoesNothing(t *testing.T) {
	var calls atomic.Int32
	s, _ := newFakeScheduler(func() { calls.Add(1) })

	s.Cancel()
	s.Run(context.Background())

	if got := calls.Load(); got != 0 {
		t.Errorf("trigger called %d times, want 0", got)
	}
}

func TestScheduler_TriggerOnceIsIndependent(t *testing.T) {
	var calls atomic.Int32
	s, _ := newFakeScheduler(func() { calls.Add(1) })

	// Not coalesced, not tied to Run
	s.TriggerOnce()
	s.TriggerOnce()

	if got := calls.Load(); got != 2 {
		t.Errorf("trigger called %d times, want 2", got)
	}
}

func TestScheduler_RealTicker(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(20*time.Millisecond, func() { calls.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// One immediate trigger plus roughly five ticks; allow for scheduling jitter
	if got := calls.Load(); got < 3 || got > 7 {
		t.Errorf("trigger called %d times in 110ms at 20ms interval", got)
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero", 0, 5 * time.Second},
		{"negative", -time.Second, 5 * time.Second},
		{"explicit", 250 * time.Millisecond, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(tt.interval, func() {})
			if got := s.Interval(); got != tt.want {
				t.Errorf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}
