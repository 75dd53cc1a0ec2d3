package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Binding overrides the command a gesture triggers.
type Binding struct {
	ID        string    `json:"id"`
	Gesture   string    `json:"gesture"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BindingRepository provides CRUD operations for bindings. There is at most
// one binding per gesture.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

// Upsert creates the binding for b.Gesture or replaces its command. A new
// binding gets a generated ID.
func (r *BindingRepository) Upsert(b *Binding) error {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	_, err := r.db.Exec(
		`INSERT INTO bindings (id, gesture, command, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(gesture) DO UPDATE SET command = excluded.command, updated_at = excluded.updated_at`,
		b.ID, b.Gesture, b.Command, now, now,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert binding for %s", b.Gesture)
	}

	stored, err := r.GetByGesture(b.Gesture)
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// GetByGesture returns the binding for a gesture name.
func (r *BindingRepository) GetByGesture(gesture string) (*Binding, error) {
	b := &Binding{}
	err := r.db.QueryRow(
		`SELECT id, gesture, command, created_at, updated_at FROM bindings WHERE gesture = ?`,
		gesture,
	).Scan(&b.ID, &b.Gesture, &b.Command, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get binding for %s", gesture)
	}
	return b, nil
}

// List returns all bindings ordered by gesture name.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, command, created_at, updated_at FROM bindings ORDER BY gesture`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list bindings")
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		if err := rows.Scan(&b.ID, &b.Gesture, &b.Command, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bindings, nil
}

// Delete removes the binding for a gesture, restoring its default command.
func (r *BindingRepository) Delete(gesture string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE gesture = ?`, gesture)
	if err != nil {
		return errors.Wrapf(err, "delete binding for %s", gesture)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
