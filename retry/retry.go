// Package retry models the fetch retry loop as an explicit state machine so
// the policy can be tested without any network I/O.
//
// A Machine starts Idle. Begin moves it to Attempting; Observe classifies the
// attempt's outcome and moves it to Succeeded, Exhausted, or Waiting (with the
// delay to sleep before the next Begin).
package retry

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
)

type State int

const (
	Idle State = iota
	Waiting
	Attempting
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome classifies a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeServerError
	OutcomeRejected
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeServerError:
		return "server_error"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may fix the outcome.
func (o Outcome) Retryable() bool {
	return o == OutcomeRateLimited || o == OutcomeServerError || o == OutcomeTransportError
}

// Signal is the observed result of an attempt. RetryAfter is only honoured
// when HasRetryAfter is set.
type Signal struct {
	Outcome       Outcome
	RetryAfter    time.Duration
	HasRetryAfter bool
}

// FromStatus classifies an HTTP status code. header is consulted for
// Retry-After on 429 responses and may be nil.
func FromStatus(status int, header http.Header, now time.Time) Signal {
	switch {
	case status >= 200 && status < 300:
		return Signal{Outcome: OutcomeSuccess}
	case status == http.StatusTooManyRequests:
		sig := Signal{Outcome: OutcomeRateLimited}
		if header != nil {
			sig.RetryAfter, sig.HasRetryAfter = ParseRetryAfter(header.Get("Retry-After"), now)
		}
		return sig
	case status >= 500:
		return Signal{Outcome: OutcomeServerError}
	default:
		return Signal{Outcome: OutcomeRejected}
	}
}

// TransportError is the signal for timeouts, connection failures and
// unparseable bodies.
func TransportError() Signal { return Signal{Outcome: OutcomeTransportError} }

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP date. Negative values clamp to zero.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// Policy bounds the number of attempts and scales the linear backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Backoff is the computed delay after the 0-based attempt failed.
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt+1)
}

// Delay picks the wait after a retryable failure: an explicit server delay
// wins over the computed backoff.
func (p Policy) Delay(attempt int, sig Signal) time.Duration {
	if sig.Outcome == OutcomeRateLimited && sig.HasRetryAfter {
		if sig.RetryAfter < 0 {
			return 0
		}
		return sig.RetryAfter
	}
	return p.Backoff(attempt)
}

// Machine tracks one lookup's progress through the policy. Not safe for
// concurrent use; each fetch owns its own Machine.
type Machine struct {
	policy  Policy
	state   State
	attempt int
	delay   time.Duration
	last    Outcome
}

func NewMachine(p Policy) *Machine {
	return &Machine{policy: p.withDefaults(), state: Idle}
}

func (m *Machine) State() State { return m.state }

// Attempt is the 0-based index of the current (or next) attempt.
func (m *Machine) Attempt() int { return m.attempt }

// Delay is the wait computed by the last transition into Waiting.
func (m *Machine) Delay() time.Duration { return m.delay }

// Last is the outcome of the most recent attempt.
func (m *Machine) Last() Outcome { return m.last }

func (m *Machine) MaxAttempts() int { return m.policy.MaxAttempts }

// Begin starts the next attempt. It returns false once the machine reached a
// terminal state.
func (m *Machine) Begin() bool {
	switch m.state {
	case Idle, Waiting:
		m.state = Attempting
		m.delay = 0
		return true
	default:
		return false
	}
}

// Observe records the outcome of the current attempt and returns the new
// state. A retryable failure on the final attempt exhausts the machine
// without a wait.
func (m *Machine) Observe(sig Signal) State {
	if m.state != Attempting {
		return m.state
	}
	m.last = sig.Outcome

	switch {
	case sig.Outcome == OutcomeSuccess:
		m.state = Succeeded
	case !sig.Outcome.Retryable():
		m.state = Exhausted
	case m.attempt+1 >= m.policy.MaxAttempts:
		m.state = Exhausted
	default:
		m.delay = m.policy.Delay(m.attempt, sig)
		m.attempt++
		m.state = Waiting
	}
	return m.state
}
