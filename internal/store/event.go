package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Event is one journal entry: a mode transition or a discrete action.
// SessionSeq orders events within their session, starting at 1.
type Event struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	SessionSeq uint64          `json:"session_seq"`
	Kind       string          `json:"kind"`
	Gesture    string          `json:"gesture,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EventRepository appends to and reads the event journal.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append stores e, assigning an ID and timestamp when missing.
func (r *EventRepository) Append(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	detail := e.Detail
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, session_id, session_seq, kind, gesture, detail, created_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.SessionSeq, e.Kind, e.Gesture, string(detail), e.CreatedAt.UnixNano(),
	)
	return errors.Wrapf(err, "append %s event", e.Kind)
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.Query(
		`SELECT id, session_id, session_seq, kind, gesture, detail, created_at_ns
		 FROM events ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var detail string
		var ns int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SessionSeq, &e.Kind, &e.Gesture, &detail, &ns); err != nil {
			return nil, err
		}
		e.Detail = json.RawMessage(detail)
		e.CreatedAt = time.Unix(0, ns)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// CountBySession returns the number of events recorded in a session.
func (r *EventRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID).Scan(&n)
	return n, errors.Wrap(err, "count events")
}

// Prune deletes events older than before and returns how many were removed.
func (r *EventRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at_ns < ?`, before.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "prune events")
	}
	return result.RowsAffected()
}
