package activity

import (
	"context"
	"errors"

	domain "signup/internal/domain/activity"
)

// Store errors. Each maps to one backend rejection.
var (
	ErrNotFound        = errors.New("activity not found")
	ErrAlreadySignedUp = errors.New("student is already signed up")
	ErrFull            = errors.New("activity is full")
	ErrNotSignedUp     = errors.New("student is not signed up for this activity")
)

// Store persists activities and their rosters.
type Store interface {
	List(ctx context.Context) (domain.Collection, error)
	Get(ctx context.Context, name string) (domain.Activity, error)
	Save(ctx context.Context, value domain.Activity) error
	AddParticipant(ctx context.Context, name, email string) error
	RemoveParticipant(ctx context.Context, name, email string) error
	Count(ctx context.Context) (int, error)
}
