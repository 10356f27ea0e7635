package orchestrators

import (
	"context"
	"log/slog"

	"signup/internal/adapters/backend"
	"signup/internal/domain/banner"
)

// Banner copy for login.
const (
	LoginFallbackError   = "Login failed"
	LoginFallbackSuccess = "Logged in"
	LoginGenericError    = "Login failed. Please try again."
)

// LoginBackend defines the backend call needed by Login.
type LoginBackend interface {
	Login(ctx context.Context, username, password string) (backend.Result, error)
}

// LoginInput carries the login form values.
type LoginInput struct {
	Username string
	Password string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Backend LoginBackend
}

// ExecuteLogin starts an admin session on the backend.
// PRE: credentials come from the login form
// POST: On success the login form clears, then auth state and activities are refetched in that order
// INVARIANT: A rejected login triggers no refetch
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (Outcome, error) {
	res, err := deps.Backend.Login(ctx, input.Username, input.Password)
	if err != nil {
		if !isServerReported(err) {
			slog.Error("auth_event", "event", "login_error", "username", input.Username, "error", err)
		} else {
			slog.Info("auth_event", "event", "login_failed", "username", input.Username)
		}
		return failureOutcome(err, LoginFallbackError, LoginGenericError), err
	}

	msg := res.Message
	if msg == "" {
		msg = LoginFallbackSuccess
	}
	slog.Info("auth_event", "event", "login_success", "username", input.Username)
	return Outcome{
		Message:           msg,
		Kind:              banner.KindSuccess,
		Succeeded:         true,
		ResetForm:         true,
		RefreshAuth:       true,
		RefreshActivities: true,
	}, nil
}
