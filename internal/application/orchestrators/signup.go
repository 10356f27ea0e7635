package orchestrators

import (
	"context"
	"log/slog"

	"signup/internal/adapters/backend"
	"signup/internal/domain/banner"
)

// Banner copy for signup failures.
const (
	SignupFallbackError = "An error occurred"
	SignupGenericError  = "Failed to sign up. Please try again."
)

// SignupBackend defines the backend call needed by Signup.
type SignupBackend interface {
	Signup(ctx context.Context, activityName, email string) (backend.Result, error)
}

// SignupInput carries the signup form values.
type SignupInput struct {
	Email    string
	Activity string
}

// SignupDeps holds dependencies for Signup.
type SignupDeps struct {
	Backend SignupBackend
}

// ExecuteSignup registers an email for an activity.
// PRE: input comes from the signup form; the backend validates it
// POST: On success the form resets and activities are refetched; on failure nothing but the banner changes
func ExecuteSignup(ctx context.Context, input SignupInput, deps SignupDeps) (Outcome, error) {
	res, err := deps.Backend.Signup(ctx, input.Activity, input.Email)
	if err != nil {
		if !isServerReported(err) {
			slog.Error("signup_failed", "activity", input.Activity, "error", err)
		} else {
			slog.Info("signup_rejected", "activity", input.Activity, "error", err)
		}
		return failureOutcome(err, SignupFallbackError, SignupGenericError), err
	}

	slog.Info("signup_succeeded", "activity", input.Activity)
	return Outcome{
		Message:           res.Message,
		Kind:              banner.KindSuccess,
		Succeeded:         true,
		ResetForm:         true,
		RefreshActivities: true,
	}, nil
}
