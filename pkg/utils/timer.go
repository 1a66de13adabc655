package utils

import (
	"sync"
	"time"
)

// Phase is one timed step of a run.
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// PhaseTimer stops a phase started by Timer.Start. It is meant for defer.
type PhaseTimer struct {
	timer *Timer
	name  string
}

// Stop records the phase duration. Only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.stop(pt.name)
}

// Timer records named phases in the order they were started. A phase name
// that is started again accumulates into the same entry.
type Timer struct {
	mu     sync.Mutex
	name   string
	clock  Clock
	logger Logger
	start  time.Time
	phases map[string]*Phase
	order  []string
}

// TimerOption configures a Timer.
type TimerOption func(*Timer)

// WithLogger sets where Summary is logged.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) { t.logger = logger }
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) { t.clock = clock }
}

// NewTimer creates a Timer named name.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:   name,
		clock:  NewRealClock(),
		logger: &NullLogger{},
		phases: make(map[string]*Phase),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins timing phase name.
func (t *Timer) Start(name string) *PhaseTimer {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.phases[name]
	if !ok {
		p = &Phase{Name: name}
		t.phases[name] = p
		t.order = append(t.order, name)
	}
	p.Start = t.clock.Now()
	p.done = false
	return &PhaseTimer{timer: t, name: name}
}

func (t *Timer) stop(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.phases[name]
	if !ok {
		return 0
	}
	if !p.done {
		p.Duration += t.clock.Since(p.Start)
		p.done = true
	}
	return p.Duration
}

// TimeFunc runs fn as phase name.
func (t *Timer) TimeFunc(name string, fn func() error) error {
	defer t.Start(name).Stop()
	return fn()
}

// Duration returns the recorded duration of phase name.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.phases[name]; ok {
		return p.Duration
	}
	return 0
}

// Total returns the time since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Phases returns copies of all phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.phases[name])
	}
	return out
}

// Milliseconds returns phase durations keyed by name, for records.
func (t *Timer) Milliseconds() map[string]int64 {
	out := make(map[string]int64)
	for _, p := range t.Phases() {
		out[p.Name] = p.Duration.Milliseconds()
	}
	return out
}

// Summary logs each phase and the total at debug level.
func (t *Timer) Summary() {
	for i, p := range t.Phases() {
		t.logger.Debug("%s phase %d %s: %v", t.name, i+1, p.Name, p.Duration)
	}
	t.logger.Debug("%s total: %v", t.name, t.Total())
}
