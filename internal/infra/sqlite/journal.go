package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
)

// ─── Power Events ───────────────────────────────────────────────────────────

// RecordPowerEvent appends a monitor transition.
func (d *DB) RecordPowerEvent(ev domain.PowerEvent) error {
	_, err := d.db.Exec(
		`INSERT INTO power_events (at_ms, kind, on_ac, percent, phase) VALUES (?, ?, ?, ?, ?)`,
		ev.At.UnixMilli(), string(ev.Kind), ev.OnAC, ev.Percent, ev.Phase,
	)
	return err
}

// ListPowerEvents returns the most recent events, newest first.
func (d *DB) ListPowerEvents(limit int) ([]domain.PowerEvent, error) {
	rows, err := d.db.Query(
		`SELECT id, at_ms, kind, on_ac, percent, phase
		 FROM power_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.PowerEvent
	for rows.Next() {
		var e domain.PowerEvent
		var at int64
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.OnAC, &e.Percent, &e.Phase); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── Confirmation Sessions ──────────────────────────────────────────────────

// OpenSession inserts a new session row.
func (d *DB) OpenSession(rec domain.SessionRecord) error {
	_, err := d.db.Exec(
		`INSERT INTO sessions (id, event_id, opened_at_ms, outcome, percent) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.OpenedAt.UnixMilli(), string(rec.Outcome), rec.Percent,
	)
	return err
}

// ResolveSession records how a session ended. A later call with a
// non-empty errMsg attaches the error without losing the outcome.
func (d *DB) ResolveSession(id string, outcome domain.SessionOutcome, at time.Time, errMsg string) error {
	result, err := d.db.Exec(
		`UPDATE sessions SET outcome = ?, resolved_ms = ?, error = COALESCE(NULLIF(?, ''), error)
		 WHERE id = ?`,
		string(outcome), at.UnixMilli(), errMsg, id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
func (d *DB) ListSessions(limit int) ([]domain.SessionRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, event_id, opened_at_ms, resolved_ms, outcome, percent, error
		 FROM sessions ORDER BY opened_at_ms DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		var r domain.SessionRecord
		var opened int64
		var resolved sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.EventID, &opened, &resolved, &r.Outcome, &r.Percent, &errMsg); err != nil {
			return nil, err
		}
		r.OpenedAt = time.UnixMilli(opened)
		if resolved.Valid {
			t := time.UnixMilli(resolved.Int64)
			r.ResolvedAt = &t
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Retention ──────────────────────────────────────────────────────────────

// Prune deletes events and resolved sessions older than cutoff.
func (d *DB) Prune(cutoff time.Time) (int64, error) {
	ms := cutoff.UnixMilli()
	res, err := d.db.Exec(`DELETE FROM power_events WHERE at_ms < ?`, ms)
	if err != nil {
		return 0, err
	}
	events, _ := res.RowsAffected()

	res, err = d.db.Exec(`DELETE FROM sessions WHERE opened_at_ms < ? AND outcome != ?`,
		ms, string(domain.OutcomeOpen))
	if err != nil {
		return events, err
	}
	sessions, _ := res.RowsAffected()
	return events + sessions, nil
}

// AbandonOpenSessions marks sessions left open by a crashed daemon as
// aborted. Returns how many were fixed up.
func (d *DB) AbandonOpenSessions(at time.Time) (int64, error) {
	res, err := d.db.Exec(
		`UPDATE sessions SET outcome = ?, resolved_ms = ? WHERE outcome = ?`,
		string(domain.OutcomeAborted), at.UnixMilli(), string(domain.OutcomeOpen),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
