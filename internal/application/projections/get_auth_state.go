package projections

import (
	"context"
	"log/slog"

	"signup/internal/domain/authstate"
)

// AuthStateSource asks the backend who the current visitor is.
type AuthStateSource interface {
	Me(ctx context.Context) (bool, error)
}

// GetAuthStateDeps holds dependencies for GetAuthState.
type GetAuthStateDeps struct {
	Source AuthStateSource
}

// QueryGetAuthState resolves the privileged flag.
// Any failure is logged and reads as unprivileged; it is never surfaced to the banner.
// POST: Returns authstate.Unprivileged on error
func QueryGetAuthState(ctx context.Context, deps GetAuthStateDeps) authstate.State {
	ok, err := deps.Source.Me(ctx)
	if err != nil {
		slog.Error("auth_status_fetch_failed", "error", err)
		return authstate.Unprivileged
	}
	return authstate.State{Privileged: ok}
}
