package confirm

import (
	"sync"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
)

// Session is one cancellable countdown. It is created by Controller.Open
// and resolves exactly once, as cancelled, expired or aborted.
type Session struct {
	ID       string
	Event    domain.ShutdownRequested
	OpenedAt time.Time
	Deadline time.Time

	ticks       chan int
	cancelReq   chan struct{}
	cancelOnce  sync.Once
	disableReq  chan struct{}
	disableOnce sync.Once
	done        chan struct{}

	mu        sync.Mutex
	remaining int
	outcome   domain.SessionOutcome
	err       error
}

// Info is the JSON view of a session.
type Info struct {
	ID        string                `json:"id"`
	EventID   string                `json:"event_id"`
	OpenedAt  time.Time             `json:"opened_at"`
	Deadline  time.Time             `json:"deadline"`
	Remaining int                   `json:"remaining"`
	Outcome   domain.SessionOutcome `json:"outcome"`
	Error     string                `json:"error,omitempty"`
}

func newSession(id string, ev domain.ShutdownRequested, now time.Time, countdown int, tick time.Duration) *Session {
	return &Session{
		ID:        id,
		Event:     ev,
		OpenedAt:  now,
		Deadline:  now.Add(time.Duration(countdown) * tick),
		ticks:     make(chan int, countdown+1),
		cancelReq:  make(chan struct{}),
		disableReq: make(chan struct{}),
		done:       make(chan struct{}),
		remaining:  countdown,
		outcome:    domain.OutcomeOpen,
	}
}

// Ticks streams the remaining seconds, starting with the full countdown
// and ending with 0 on expiry. It is closed when the session resolves.
// The countdown never waits for a slow reader.
func (s *Session) Ticks() <-chan int {
	return s.ticks
}

// Done is closed once the session has resolved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Remaining returns the seconds left.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Outcome returns the resolution, or OutcomeOpen while counting down.
func (s *Session) Outcome() domain.SessionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Err returns the shutdown execution error of an expired session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel requests cancellation and waits for the session to resolve. It
// reports whether the session ended cancelled; false means the countdown
// had already expired (or the daemon aborted it) first.
// Must not be called from a Controller listener.
func (s *Session) Cancel() bool {
	s.cancelOnce.Do(func() { close(s.cancelReq) })
	<-s.done
	return s.Outcome() == domain.OutcomeCancelled
}

// disabled asks the countdown to stop because auto-shutdown was turned
// off elsewhere. It does not wait.
func (s *Session) disabled() {
	s.disableOnce.Do(func() { close(s.disableReq) })
}

// Info returns a snapshot for the control API.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:        s.ID,
		EventID:   s.Event.ID,
		OpenedAt:  s.OpenedAt,
		Deadline:  s.Deadline,
		Remaining: s.remaining,
		Outcome:   s.outcome,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	return info
}

func (s *Session) decrement() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining > 0 {
		s.remaining--
	}
	return s.remaining
}

func (s *Session) emitTick(remaining int) {
	select {
	case s.ticks <- remaining:
	default:
	}
}

func (s *Session) setOutcome(o domain.SessionOutcome, err error) {
	s.mu.Lock()
	s.outcome = o
	s.err = err
	s.mu.Unlock()
}

// finish closes the tick stream and Done. Called once, by the countdown
// goroutine.
func (s *Session) finish() {
	close(s.ticks)
	close(s.done)
}
