package engine

import (
	"sync"
	"time"
)

// Scheduler coalesces rapid-fire input into one recompute per settled
// burst. Each input class owns an independent timer; scheduling a task for
// a class cancels and restarts that class's timer. Flush fires a pending
// task immediately, which is how blur events bypass the debounce window.
type Scheduler struct {
	mu      sync.Mutex
	windows map[string]time.Duration
	def     time.Duration
	timers  map[string]*time.Timer
	pending map[string]func()
	gens    map[string]uint64
	stopped bool
}

// NewScheduler builds a scheduler with a default settle window and optional
// per-class overrides.
func NewScheduler(def time.Duration, windows map[string]time.Duration) *Scheduler {
	if def <= 0 {
		def = 200 * time.Millisecond
	}
	return &Scheduler{
		windows: windows,
		def:     def,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]func()),
		gens:    make(map[string]uint64),
	}
}

func (s *Scheduler) window(class string) time.Duration {
	if d, ok := s.windows[class]; ok && d > 0 {
		return d
	}
	return s.def
}

// Schedule queues fn to run after the class's settle window, replacing any
// task already pending for the class. The generation counter guards against
// a stopped timer that already fired and is waiting on the lock: such a
// timer must not run the replacement task early.
func (s *Scheduler) Schedule(class string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[class]; ok {
		t.Stop()
	}
	s.gens[class]++
	gen := s.gens[class]
	s.pending[class] = fn
	s.timers[class] = time.AfterFunc(s.window(class), func() {
		s.fireGen(class, gen)
	})
}

// Flush runs the pending task for a class immediately, if any.
func (s *Scheduler) Flush(class string) {
	s.fire(class)
}

// Cancel drops the pending task for a class without running it.
func (s *Scheduler) Cancel(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[class]; ok {
		t.Stop()
		delete(s.timers, class)
	}
	delete(s.pending, class)
}

// Stop cancels every pending task and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for class, t := range s.timers {
		t.Stop()
		delete(s.timers, class)
	}
	s.pending = make(map[string]func())
}

func (s *Scheduler) fire(class string) {
	s.mu.Lock()
	fn, ok := s.takePending(class)
	s.mu.Unlock()

	if ok && fn != nil {
		fn()
	}
}

// fireGen runs the pending task only if no Schedule call superseded the
// timer that expired.
func (s *Scheduler) fireGen(class string, gen uint64) {
	s.mu.Lock()
	if s.gens[class] != gen {
		s.mu.Unlock()
		return
	}
	fn, ok := s.takePending(class)
	s.mu.Unlock()

	if ok && fn != nil {
		fn()
	}
}

// takePending must be called with the lock held.
func (s *Scheduler) takePending(class string) (func(), bool) {
	fn, ok := s.pending[class]
	if ok {
		delete(s.pending, class)
	}
	if t, tok := s.timers[class]; tok {
		t.Stop()
		delete(s.timers, class)
	}
	return fn, ok
}
