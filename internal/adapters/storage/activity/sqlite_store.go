package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"signup/internal/adapters/storage"
	domain "signup/internal/domain/activity"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// List returns every activity with its roster, in insertion order.
// POST: Participants is non-nil for every activity
func (s *SQLiteStore) List(ctx context.Context) (domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, description, schedule, max_participants FROM activity ORDER BY position")
	if err != nil {
		return domain.Collection{}, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out domain.Collection
	index := map[string]int{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
			return domain.Collection{}, fmt.Errorf("scan activity: %w", err)
		}
		a.Participants = []string{}
		index[a.Name] = len(out.Activities)
		out.Activities = append(out.Activities, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Collection{}, fmt.Errorf("list activities: %w", err)
	}
	rows.Close()

	prows, err := s.db.QueryContext(ctx, "SELECT activity_name, email FROM participant ORDER BY seq")
	if err != nil {
		return domain.Collection{}, fmt.Errorf("list participants: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var name, email string
		if err := prows.Scan(&name, &email); err != nil {
			return domain.Collection{}, fmt.Errorf("scan participant: %w", err)
		}
		if i, ok := index[name]; ok {
			out.Activities[i].Participants = append(out.Activities[i].Participants, email)
		}
	}
	return out, prows.Err()
}

// Get retrieves one activity with its roster.
// PRE: name is non-empty
// POST: Returns ErrNotFound when no activity has that name
func (s *SQLiteStore) Get(ctx context.Context, name string) (domain.Activity, error) {
	a := domain.Activity{Name: name, Participants: []string{}}
	row := s.db.QueryRowContext(ctx,
		"SELECT description, schedule, max_participants FROM activity WHERE name = ?", name)
	if err := row.Scan(&a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Activity{}, ErrNotFound
		}
		return domain.Activity{}, fmt.Errorf("get activity: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT email FROM participant WHERE activity_name = ? ORDER BY seq", name)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return domain.Activity{}, fmt.Errorf("scan participant: %w", err)
		}
		a.Participants = append(a.Participants, email)
	}
	return a, rows.Err()
}

// Save inserts or updates an activity and appends any participants not yet on its roster.
// PRE: value passes Validate
// POST: An existing activity keeps its position in the list
func (s *SQLiteStore) Save(ctx context.Context, value domain.Activity) error {
	if err := value.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO activity (name, description, schedule, max_participants) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET description=excluded.description, schedule=excluded.schedule, max_participants=excluded.max_participants`,
		value.Name, value.Description, value.Schedule, value.MaxParticipants)
	if err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	for _, email := range value.Participants {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO participant (activity_name, email, signed_up_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
			value.Name, email, s.now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("save participant: %w", err)
		}
	}
	return tx.Commit()
}

// AddParticipant appends email to the activity's roster.
// POST: Returns ErrNotFound, ErrAlreadySignedUp or ErrFull without changing anything
func (s *SQLiteStore) AddParticipant(ctx context.Context, name, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var capacity int
	err = tx.QueryRowContext(ctx, "SELECT max_participants FROM activity WHERE name = ?", name).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}

	var count, existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(email = ?), 0) FROM participant WHERE activity_name = ?",
		email, name).Scan(&count, &existing)
	if err != nil {
		return fmt.Errorf("count participants: %w", err)
	}
	if existing > 0 {
		return ErrAlreadySignedUp
	}
	if count >= capacity {
		return ErrFull
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO participant (activity_name, email, signed_up_at) VALUES (?, ?, ?)",
		name, email, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return tx.Commit()
}

// RemoveParticipant drops email from the activity's roster.
// POST: Returns ErrNotFound or ErrNotSignedUp without changing anything
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, name, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM activity WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM participant WHERE activity_name = ? AND email = ?", name, email)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotSignedUp
	}
	return tx.Commit()
}

// Count returns the number of activities.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity").Scan(&n); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}
