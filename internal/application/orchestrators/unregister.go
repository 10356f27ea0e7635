package orchestrators

import (
	"context"
	"log/slog"

	"signup/internal/adapters/backend"
	"signup/internal/domain/banner"
)

// Banner copy for unregister failures.
const (
	UnregisterFallbackError = "An error occurred"
	UnregisterGenericError  = "Failed to unregister. Please try again."
)

// UnregisterBackend defines the backend call needed by Unregister.
type UnregisterBackend interface {
	Unregister(ctx context.Context, activityName, email string) (backend.Result, error)
}

// UnregisterInput identifies the participant to remove, as carried by a removal control.
type UnregisterInput struct {
	Activity string
	Email    string
}

// UnregisterDeps holds dependencies for Unregister.
type UnregisterDeps struct {
	Backend UnregisterBackend
}

// ExecuteUnregister removes a participant from an activity.
// POST: On success activities are refetched; on failure nothing but the banner changes
func ExecuteUnregister(ctx context.Context, input UnregisterInput, deps UnregisterDeps) (Outcome, error) {
	res, err := deps.Backend.Unregister(ctx, input.Activity, input.Email)
	if err != nil {
		if !isServerReported(err) {
			slog.Error("unregister_failed", "activity", input.Activity, "error", err)
		} else {
			slog.Info("unregister_rejected", "activity", input.Activity, "error", err)
		}
		return failureOutcome(err, UnregisterFallbackError, UnregisterGenericError), err
	}

	slog.Info("unregister_succeeded", "activity", input.Activity)
	return Outcome{
		Message:           res.Message,
		Kind:              banner.KindSuccess,
		Succeeded:         true,
		RefreshActivities: true,
	}, nil
}
