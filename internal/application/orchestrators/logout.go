package orchestrators

import (
	"context"
	"log/slog"

	"signup/internal/adapters/backend"
	"signup/internal/domain/banner"
)

// Banner copy for logout.
const (
	LogoutFallbackError   = "Logout failed"
	LogoutFallbackSuccess = "Logged out"
	LogoutGenericError    = "Logout failed. Please try again."
)

// LogoutBackend defines the backend call needed by Logout.
type LogoutBackend interface {
	Logout(ctx context.Context) (backend.Result, error)
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Backend LogoutBackend
}

// ExecuteLogout ends the admin session.
// POST: On success auth state and activities are refetched in that order
func ExecuteLogout(ctx context.Context, deps LogoutDeps) (Outcome, error) {
	res, err := deps.Backend.Logout(ctx)
	if err != nil {
		if !isServerReported(err) {
			slog.Error("auth_event", "event", "logout_error", "error", err)
		} else {
			slog.Info("auth_event", "event", "logout_failed", "error", err)
		}
		return failureOutcome(err, LogoutFallbackError, LogoutGenericError), err
	}

	msg := res.Message
	if msg == "" {
		msg = LogoutFallbackSuccess
	}
	slog.Info("auth_event", "event", "logout_success")
	return Outcome{
		Message:           msg,
		Kind:              banner.KindSuccess,
		Succeeded:         true,
		RefreshAuth:       true,
		RefreshActivities: true,
	}, nil
}
