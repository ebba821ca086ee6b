package domain

import "time"

// PowerEventKind labels a journaled monitor transition.
type PowerEventKind string

const (
	EventUnplugged   PowerEventKind = "unplugged"
	EventPlugged     PowerEventKind = "plugged"
	EventBatteryLost PowerEventKind = "battery_lost"
	EventArmed       PowerEventKind = "armed"
	EventDisarmed    PowerEventKind = "disarmed"
	EventFired       PowerEventKind = "fired"
)

// PowerEvent is one row of the power journal.
type PowerEvent struct {
	ID      int64          `json:"id"`
	At      time.Time      `json:"at"`
	Kind    PowerEventKind `json:"kind"`
	OnAC    bool           `json:"on_ac"`
	Percent int            `json:"percent"`
	Phase   string         `json:"phase"`
}

// SessionOutcome is how a confirmation session ended.
type SessionOutcome string

const (
	OutcomeOpen      SessionOutcome = "open"
	OutcomeCancelled SessionOutcome = "cancelled"
	OutcomeExpired   SessionOutcome = "expired"
	OutcomeAborted   SessionOutcome = "aborted" // daemon stopped mid-countdown
)

// SessionRecord is one row of the confirmation journal.
type SessionRecord struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	OpenedAt   time.Time      `json:"opened_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	Outcome    SessionOutcome `json:"outcome"`
	Percent    int            `json:"percent"`
	Error      string         `json:"error,omitempty"`
}
