package orchestrators

import (
	"errors"

	"signup/internal/adapters/backend"
	"signup/internal/domain/banner"
)

// Outcome is what the view controller applies after a mutating action.
// Actions never patch local state; on success they only request refetches.
type Outcome struct {
	Message           string
	Kind              banner.Kind
	Succeeded         bool
	ResetForm         bool
	RefreshAuth       bool
	RefreshActivities bool
}

// failureOutcome maps an action error onto the banner.
// Server-reported errors show their detail, or fallback; anything else shows generic.
func failureOutcome(err error, fallback, generic string) Outcome {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Detail
		if msg == "" {
			msg = fallback
		}
		return Outcome{Message: msg, Kind: banner.KindError}
	}
	return Outcome{Message: generic, Kind: banner.KindError}
}

// isServerReported reports whether err came from a structured backend error body.
func isServerReported(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr)
}
