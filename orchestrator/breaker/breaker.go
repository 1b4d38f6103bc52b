// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

// Package breaker implements the circuit breaker guarding the external
// vision inference call path. The breaker decides admission only; retry
// policy belongs to the fault classifier and is never performed here.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned when the circuit is open and the recovery
	// timeout has not yet elapsed.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTooManyCalls is returned in half-open state once the trial
	// call allowance is exhausted.
	ErrTooManyCalls = errors.New("circuit breaker half-open limit reached")
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed admits all calls.
	StateClosed State = iota
	// StateOpen refuses all calls until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of trial calls.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

const (
	maxCallHistory       = 100
	maxTransitionHistory = 50
)

// Config contains immutable circuit breaker configuration. Zero values
// are replaced by defaults at construction.
type Config struct {
	// FailureThreshold is the number of consecutive failures in closed
	// state that opens the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before
	// admitting trial calls.
	RecoveryTimeout time.Duration

	// HalfOpenMaxCalls is the trial call allowance in half-open state.
	HalfOpenMaxCalls int

	// SuccessThreshold is the number of successes in half-open state
	// that closes the circuit.
	SuccessThreshold int
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}
}

// EventType identifies a breaker event.
type EventType string

const (
	EventCallSuccess  EventType = "callSuccess"
	EventCallFailure  EventType = "callFailure"
	EventStateChange  EventType = "stateChange"
	EventCircuitOpen  EventType = "circuitOpen"
	EventCircuitClose EventType = "circuitClose"
)

// Event is delivered to registered observers on every admitted call and
// state transition.
type Event struct {
	Type      EventType `json:"type"`
	From      State     `json:"from,omitempty"`
	To        State     `json:"to,omitempty"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives breaker events. Observers are called synchronously
// after the triggering transition commits and must not block.
type Observer func(Event)

// CallRecord is one entry in the bounded call history.
type CallRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ms"`
	State     State         `json:"state"`
}

// Transition is one entry in the bounded state-transition history.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Breaker is the circuit breaker. Safe for concurrent use.
type Breaker struct {
	config Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	halfOpenCalls   int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	callHistory     []CallRecord
	transitions     []Transition

	observersMu sync.RWMutex
	observers   []Observer
}

// New creates a circuit breaker with the given configuration.
func New(config Config) *Breaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = def.RecoveryTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}

	return &Breaker{
		config:      config,
		state:       StateClosed,
		callHistory: make([]CallRecord, 0, maxCallHistory),
		transitions: make([]Transition, 0, maxTransitionHistory),
	}
}

// Subscribe registers an observer for breaker events.
func (b *Breaker) Subscribe(obs Observer) {
	b.observersMu.Lock()
	defer b.observersMu.Unlock()
	b.observers = append(b.observers, obs)
}

// Execute runs op if the breaker admits the call. It returns ErrOpen or
// ErrTooManyCalls when admission is refused, otherwise the result of op.
// The breaker never retries op.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	events, err := b.admit()
	b.emit(events)
	if err != nil {
		return err
	}

	start := time.Now()
	err = op(ctx)
	b.record(err, time.Since(start))
	return err
}

// admit decides whether a call may proceed and accounts for the
// half-open allowance.
func (b *Breaker) admit() ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	switch b.state {
	case StateClosed:
		return nil, nil

	case StateOpen:
		if now.Before(b.nextAttemptTime) {
			return nil, ErrOpen
		}
		events := b.transition(StateHalfOpen, now, "recovery timeout elapsed")
		b.halfOpenCalls++
		return events, nil

	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			return nil, ErrTooManyCalls
		}
		b.halfOpenCalls++
		return nil, nil

	default:
		return nil, ErrOpen
	}
}

// record applies the outcome of an admitted call.
func (b *Breaker) record(err error, duration time.Duration) {
	var events []Event

	b.mu.Lock()
	now := time.Now()

	b.appendCall(CallRecord{
		Timestamp: now,
		Success:   err == nil,
		Duration:  duration,
		State:     b.state,
	})

	if err != nil {
		events = append(events, Event{Type: EventCallFailure, Err: err, Timestamp: now})
		b.failureCount++
		b.lastFailureTime = now

		switch b.state {
		case StateClosed:
			if b.failureCount >= b.config.FailureThreshold {
				events = append(events, b.transition(StateOpen, now, "failure threshold reached")...)
			}
		case StateHalfOpen:
			events = append(events, b.transition(StateOpen, now, "failure during half-open trial")...)
		}
	} else {
		events = append(events, Event{Type: EventCallSuccess, Timestamp: now})

		switch b.state {
		case StateClosed:
			b.failureCount = 0
		case StateHalfOpen:
			b.successCount++
			if b.successCount >= b.config.SuccessThreshold {
				events = append(events, b.transition(StateClosed, now, "success threshold reached")...)
			}
		}
	}
	b.mu.Unlock()

	b.emit(events)
}

// transition moves the breaker to a new state and resets counters.
// Callers must hold b.mu. Returns the events the transition produced.
func (b *Breaker) transition(to State, now time.Time, reason string) []Event {
	from := b.state
	if from == to {
		return nil
	}

	b.state = to
	b.appendTransition(Transition{From: from, To: to, Timestamp: now, Reason: reason})

	events := []Event{{Type: EventStateChange, From: from, To: to, Timestamp: now}}

	switch to {
	case StateOpen:
		b.successCount = 0
		b.halfOpenCalls = 0
		b.nextAttemptTime = now.Add(b.config.RecoveryTimeout)
		events = append(events, Event{Type: EventCircuitOpen, From: from, To: to, Timestamp: now})
	case StateHalfOpen:
		b.successCount = 0
		b.halfOpenCalls = 0
	case StateClosed:
		b.failureCount = 0
		b.successCount = 0
		b.halfOpenCalls = 0
		events = append(events, Event{Type: EventCircuitClose, From: from, To: to, Timestamp: now})
	}

	return events
}

func (b *Breaker) appendCall(rec CallRecord) {
	b.callHistory = append(b.callHistory, rec)
	if len(b.callHistory) > maxCallHistory {
		b.callHistory = b.callHistory[len(b.callHistory)-maxCallHistory:]
	}
}

func (b *Breaker) appendTransition(tr Transition) {
	b.transitions = append(b.transitions, tr)
	if len(b.transitions) > maxTransitionHistory {
		b.transitions = b.transitions[len(b.transitions)-maxTransitionHistory:]
	}
}

// emit delivers events outside the state lock so observers may call
// back into the breaker.
func (b *Breaker) emit(events []Event) {
	if len(events) == 0 {
		return
	}

	b.observersMu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	for _, ev := range events {
		for _, obs := range observers {
			obs(ev)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view of the breaker for status surfaces.
type Snapshot struct {
	State            State        `json:"state"`
	FailureCount     int          `json:"failure_count"`
	SuccessCount     int          `json:"success_count"`
	HalfOpenCalls    int          `json:"half_open_calls"`
	LastFailureTime  time.Time    `json:"last_failure_time"`
	NextAttemptTime  time.Time    `json:"next_attempt_time"`
	CallHistory      []CallRecord `json:"call_history"`
	Transitions      []Transition `json:"transitions"`
	FailureThreshold int          `json:"failure_threshold"`
	SuccessThreshold int          `json:"success_threshold"`
	HalfOpenMaxCalls int          `json:"half_open_max_calls"`
}

// Snapshot returns a copy of the breaker state, counters, and bounded
// histories.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	calls := make([]CallRecord, len(b.callHistory))
	copy(calls, b.callHistory)
	trs := make([]Transition, len(b.transitions))
	copy(trs, b.transitions)

	return Snapshot{
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		HalfOpenCalls:    b.halfOpenCalls,
		LastFailureTime:  b.lastFailureTime,
		NextAttemptTime:  b.nextAttemptTime,
		CallHistory:      calls,
		Transitions:      trs,
		FailureThreshold: b.config.FailureThreshold,
		SuccessThreshold: b.config.SuccessThreshold,
		HalfOpenMaxCalls: b.config.HalfOpenMaxCalls,
	}
}

// Reset returns the breaker to closed state with cleared counters.
func (b *Breaker) Reset() {
	var events []Event
	b.mu.Lock()
	events = b.transition(StateClosed, time.Now(), "manual reset")
	b.mu.Unlock()
	b.emit(events)
}
