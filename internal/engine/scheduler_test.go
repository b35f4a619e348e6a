package engine

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerCoalesces(t *testing.T) {
	s := NewScheduler(30*time.Millisecond, nil)
	defer s.Stop()

	var fired int32
	for i := 0; i < 10; i++ {
		s.Schedule("stock", func() { atomic.AddInt32(&fired, 1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired %d times, expected 1 for a coalesced burst", got)
	}
}

func TestSchedulerIndependentClasses(t *testing.T) {
	s := NewScheduler(30*time.Millisecond, nil)
	defer s.Stop()

	var stockFired, priceFired int32
	s.Schedule("stock", func() { atomic.AddInt32(&stockFired, 1) })
	s.Schedule("price", func() { atomic.AddInt32(&priceFired, 1) })

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&stockFired) != 1 || atomic.LoadInt32(&priceFired) != 1 {
		t.Errorf("stock=%d price=%d, expected each class to fire once",
			atomic.LoadInt32(&stockFired), atomic.LoadInt32(&priceFired))
	}
}

func TestSchedulerFlushBypassesWindow(t *testing.T) {
	s := NewScheduler(10*time.Second, nil)
	defer s.Stop()

	var fired int32
	s.Schedule("stock", func() { atomic.AddInt32(&fired, 1) })

	s.Flush("stock")
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("fired %d times after flush, expected 1", got)
	}

	// The timer must not fire the task a second time.
	s.Flush("stock")
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired %d times, expected exactly 1", got)
	}
}

func TestSchedulerPerClassWindow(t *testing.T) {
	s := NewScheduler(10*time.Second, map[string]time.Duration{
		"dimensions": 20 * time.Millisecond,
	})
	defer s.Stop()

	var fired int32
	s.Schedule("dimensions", func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired %d times, expected override window to apply", got)
	}
}

func TestSchedulerReplacementWaitsFullWindow(t *testing.T) {
	// A timer expiring at the same moment a new task replaces it must not
	// run the replacement early: every task that runs must have waited out
	// its own settle window.
	s := NewScheduler(20*time.Millisecond, nil)
	defer s.Stop()

	var early int32
	for i := 0; i < 40; i++ {
		scheduled := time.Now()
		s.Schedule("stock", func() {
			if time.Since(scheduled) < 15*time.Millisecond {
				atomic.AddInt32(&early, 1)
			}
		})
		// Sleep close to the window so replacements race the expiring timer.
		time.Sleep(19 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&early); got != 0 {
		t.Errorf("%d tasks ran before their settle window elapsed", got)
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler(20*time.Millisecond, nil)
	defer s.Stop()

	var fired int32
	s.Schedule("stock", func() { atomic.AddInt32(&fired, 1) })
	s.Cancel("stock")

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired %d times after cancel, expected 0", got)
	}
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler(20*time.Millisecond, nil)

	var fired int32
	s.Schedule("stock", func() { atomic.AddInt32(&fired, 1) })
	s.Stop()
	s.Schedule("stock", func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired %d times after stop, expected 0", got)
	}
}
