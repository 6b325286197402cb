package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/devmon/internal/config"
)

// Scheduler calls a trigger immediately and then on a fixed interval.
// Manual triggers run independently of the timer and are not coalesced.
type Scheduler struct {
	interval time.Duration
	trigger  func()

	done     chan struct{}
	stopOnce sync.Once

	// newTicker is replaced in tests
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

// NewScheduler creates a scheduler. A non-positive interval uses the default.
func NewScheduler(interval time.Duration, trigger func()) *Scheduler {
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	return &Scheduler{
		interval:  interval,
		trigger:   trigger,
		done:      make(chan struct{}),
		newTicker: realTicker,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Interval returns the tick period
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run triggers once, then on every tick until ctx is done or Cancel is called.
func (s *Scheduler) Run(ctx context.Context) {
	select {
	case <-s.done:
		return
	case <-ctx.Done():
		return
	default:
	}

	s.trigger()

	ticks, stop := s.newTicker(s.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticks:
			// A tick racing Cancel must not fire after Cancel returns
			select {
			case <-s.done:
				return
			default:
			}
			s.trigger()
		}
	}
}

// TriggerOnce invokes the trigger now, independent of the timer
func (s *Scheduler) TriggerOnce() {
	s.trigger()
}

// Cancel stops future ticks. A trigger already running is not interrupted.
func (s *Scheduler) Cancel() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}
