package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome classifies a finished call for the breaker.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	// OutcomeIgnored releases a permit without touching the window. Caller
	// errors and caller cancellations say nothing about downstream health.
	OutcomeIgnored
)

// transitions lists every legal edge of the state machine. Reset is the only
// way back to closed from open, and is not part of the automatic flow.
var transitions = map[State][]State{
	StateClosed:   {StateOpen},
	StateOpen:     {StateHalfOpen},
	StateHalfOpen: {StateClosed, StateOpen},
}

// Transition describes a state change, reported to the breaker's observer.
type Transition struct {
	Name string
	From State
	To   State
	At   time.Time
}

// Breaker is a count-based sliding-window circuit breaker.
//
// Closed: outcomes are recorded in a ring of the last SlidingWindowSize calls.
// Once at least MinimumCalls are recorded and the failure rate reaches
// FailureRateThreshold the breaker opens.
// Open: Allow rejects until WaitInOpen has elapsed, then the breaker moves to
// half-open.
// Half-open: at most HalfOpenCalls trial calls are admitted. When all of them
// have reported, the trial failure rate decides between closed and open.
type Breaker struct {
	mu      sync.Mutex
	name    string
	cfg     BreakerPolicy
	clock   func() time.Time
	observe func(Transition)

	state    State
	openedAt time.Time
	// generation advances on every state change and on Reset
	generation uint64

	window []Outcome
	next   int
	filled int

	trialAdmitted  int
	trialSuccesses int
	trialFailures  int
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerClock overrides the breaker's time source.
func WithBreakerClock(clock func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// WithTransitionObserver registers a callback invoked, outside the lock, on
// every state change.
func WithTransitionObserver(fn func(Transition)) BreakerOption {
	return func(b *Breaker) {
		b.observe = fn
	}
}

// Permit is handed out by Allow and returned to Record. It remembers the
// state generation the call was admitted under.
type Permit struct {
	generation uint64
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerPolicy, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		clock:  time.Now,
		state:  StateClosed,
		window: make([]Outcome, max(cfg.SlidingWindowSize, 1)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state. With automatic transition enabled an open
// breaker whose wait has elapsed reports half-open without waiting for a call.
func (b *Breaker) State() State {
	b.mu.Lock()
	var changes []Transition
	if b.cfg.AutomaticTransition {
		changes = b.advanceLocked()
	}
	state := b.state
	b.mu.Unlock()
	b.notify(changes)
	return state
}

// Allow asks for a permit. It returns ErrCircuitOpen when the call must not
// reach the downstream. Every nil error must be paired with one Record.
func (b *Breaker) Allow() (Permit, error) {
	b.mu.Lock()
	changes := b.advanceLocked()
	permit := Permit{generation: b.generation}
	var err error
	switch b.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.trialAdmitted >= b.cfg.HalfOpenCalls {
			err = ErrCircuitOpen
		} else {
			b.trialAdmitted++
		}
	}
	b.mu.Unlock()
	b.notify(changes)
	return permit, err
}

// Record reports the outcome of a call admitted by Allow. Outcomes of calls
// admitted before the last state change are dropped.
func (b *Breaker) Record(permit Permit, outcome Outcome) {
	b.mu.Lock()
	if permit.generation != b.generation {
		b.mu.Unlock()
		return
	}
	var changes []Transition
	switch b.state {
	case StateClosed:
		if outcome != OutcomeIgnored {
			b.push(outcome)
			if b.filled >= b.cfg.MinimumCalls && b.failureRate() >= b.cfg.FailureRateThreshold {
				changes = append(changes, b.moveLocked(StateOpen))
			}
		}
	case StateHalfOpen:
		switch outcome {
		case OutcomeSuccess:
			b.trialSuccesses++
		case OutcomeFailure:
			b.trialFailures++
		case OutcomeIgnored:
			// hand the slot back so another trial can run
			if b.trialAdmitted > 0 {
				b.trialAdmitted--
			}
		}
		if done := b.trialSuccesses + b.trialFailures; done >= b.cfg.HalfOpenCalls {
			rate := float64(b.trialFailures) * 100 / float64(done)
			if rate >= b.cfg.FailureRateThreshold {
				changes = append(changes, b.moveLocked(StateOpen))
			} else {
				changes = append(changes, b.moveLocked(StateClosed))
			}
		}
	}
	b.mu.Unlock()
	b.notify(changes)
}

// Reset forces the breaker closed and clears its window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.generation++
	b.clearWindow()
	b.clearTrial()
	now := b.clock()
	b.mu.Unlock()
	if from != StateClosed {
		b.notify([]Transition{{Name: b.name, From: from, To: StateClosed, At: now}})
	}
}

// FailureRate returns the closed-state failure percentage over the recorded
// window, or -1 when fewer than MinimumCalls have been recorded.
func (b *Breaker) FailureRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filled < b.cfg.MinimumCalls {
		return -1
	}
	return b.failureRate()
}

func (b *Breaker) advanceLocked() []Transition {
	if b.state == StateOpen && !b.clock().Before(b.openedAt.Add(b.cfg.WaitInOpen)) {
		return []Transition{b.moveLocked(StateHalfOpen)}
	}
	return nil
}

// moveLocked applies one edge of the transition table. An illegal edge is a
// programming error.
func (b *Breaker) moveLocked(to State) Transition {
	from := b.state
	legal := false
	for _, s := range transitions[from] {
		if s == to {
			legal = true
			break
		}
	}
	if !legal {
		panic(fmt.Sprintf("resilience: illegal breaker transition %s -> %s", from, to))
	}

	now := b.clock()
	b.state = to
	b.generation++
	switch to {
	case StateOpen:
		b.openedAt = now
		b.clearTrial()
	case StateHalfOpen:
		b.clearTrial()
	case StateClosed:
		b.clearWindow()
		b.clearTrial()
	}
	return Transition{Name: b.name, From: from, To: to, At: now}
}

func (b *Breaker) push(o Outcome) {
	b.window[b.next] = o
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
}

func (b *Breaker) failureRate() float64 {
	if b.filled == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] == OutcomeFailure {
			failures++
		}
	}
	return float64(failures) * 100 / float64(b.filled)
}

func (b *Breaker) clearWindow() {
	for i := range b.window {
		b.window[i] = OutcomeSuccess
	}
	b.next = 0
	b.filled = 0
}

func (b *Breaker) clearTrial() {
	b.trialAdmitted = 0
	b.trialSuccesses = 0
	b.trialFailures = 0
}

func (b *Breaker) notify(changes []Transition) {
	if b.observe == nil {
		return
	}
	for _, t := range changes {
		b.observe(t)
	}
}
