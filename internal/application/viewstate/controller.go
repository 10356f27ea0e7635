// Package viewstate holds the per-visitor page state and the event handlers that change it.
//
// A Controller is the single owner of one visitor's view: the privileged flag,
// the rendered activity list, the selector options, the banner, the form values,
// and the registry of bound removal controls. Its mutex is held only between
// backend calls, never across one.
package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"signup/internal/adapters/backend"
	"signup/internal/application/orchestrators"
	"signup/internal/application/projections"
	"signup/internal/application/view"
	"signup/internal/domain/authstate"
	"signup/internal/domain/banner"
)

// ErrUnknownControl is returned when a control ID is not bound in the current render.
var ErrUnknownControl = errors.New("control is not bound to a handler")

// Action names reported to the ActionRecorder.
const (
	ActionSignup     = "signup"
	ActionUnregister = "unregister"
	ActionLogin      = "login"
	ActionLogout     = "logout"
)

// Action results reported to the ActionRecorder.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Backend is every backend call the page makes.
type Backend interface {
	projections.AuthStateSource
	projections.ActivityListSource
	orchestrators.SignupBackend
	orchestrators.UnregisterBackend
	orchestrators.LoginBackend
	orchestrators.LogoutBackend
}

// ActionRecorder counts finished user actions.
type ActionRecorder interface {
	RecordAction(action, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAction(string, string) {}

// Selection is what the visitor has typed into the forms.
// The login password is never kept.
type Selection struct {
	Email    string `json:"email"`
	Activity string `json:"activity"`
	Username string `json:"username"`
}

// Deps holds dependencies for a Controller.
type Deps struct {
	Backend     Backend
	Clock       banner.Clock
	BannerDelay time.Duration
	NewID       projections.IDGenerator
	Recorder    ActionRecorder
}

// Controller is one visitor's page.
type Controller struct {
	backend  Backend
	banner   *banner.Banner
	newID    projections.IDGenerator
	recorder ActionRecorder

	mu        sync.Mutex
	loaded    bool
	auth      authstate.State
	list      *view.Node
	options   []view.Option
	failed    bool
	handlers  map[string]projections.RemovalControl
	panelOpen bool
	selection Selection
}

// New creates a controller with an empty page.
// PRE: deps.Backend is non-nil
// POST: Not privileged; the selector holds only the placeholder option
func New(deps Deps) *Controller {
	newID := deps.NewID
	if newID == nil {
		newID = projections.NewControlID
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Controller{
		backend:  deps.Backend,
		banner:   banner.New(deps.Clock, deps.BannerDelay),
		newID:    newID,
		recorder: recorder,
		list:     view.El(view.TagDiv, "activities-list"),
		options:  []view.Option{{Value: "", Label: projections.SelectPlaceholder}},
		handlers: map[string]projections.RemovalControl{},
	}
}

// Init runs the initial load once: auth settles, then activities render with that flag.
func (c *Controller) Init(ctx context.Context) {
	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		return
	}
	c.loaded = true
	c.mu.Unlock()

	c.RefreshAuthState(ctx)
	c.RenderActivities(ctx)
}

// RefreshAuthState re-reads the privileged flag from the backend.
// POST: Privileged reflects the backend, or false on any failure
func (c *Controller) RefreshAuthState(ctx context.Context) {
	state := projections.QueryGetAuthState(ctx, projections.GetAuthStateDeps{Source: c.backend})

	c.mu.Lock()
	c.auth = state
	c.mu.Unlock()
}

// ApplyAuthUI returns the control toggles for the current privileged flag.
func (c *Controller) ApplyAuthUI() authstate.UI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.UI()
}

// RenderActivities fetches and rebuilds the activity list.
// Privilege is read after the fetch returns, so removal controls match the flag at render time.
// POST: Handlers from the previous render are unbound; on success one handler is bound per removal control
func (c *Controller) RenderActivities(ctx context.Context) {
	coll, err := projections.QueryGetActivityList(ctx, projections.GetActivityListDeps{Source: c.backend})

	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.handlers)

	if err != nil {
		failed := projections.FailedActivityList()
		c.list = failed.List
		c.failed = true
		return
	}

	built := projections.BuildActivityList(coll, c.auth.Privileged, c.newID)
	c.list = built.List
	c.options = built.Options
	c.failed = false
	if c.auth.Privileged {
		for _, rc := range built.Removals {
			c.handlers[rc.ID] = rc
		}
	}
	if _, ok := coll.Find(c.selection.Activity); !ok {
		c.selection.Activity = ""
	}
}

// Dispatch runs the handler bound to a removal control.
// PRE: controlID came from a rendered page
// POST: Returns ErrUnknownControl for controls not in the current render; nothing is sent
func (c *Controller) Dispatch(ctx context.Context, controlID string) error {
	c.mu.Lock()
	rc, ok := c.handlers[controlID]
	c.mu.Unlock()

	if !ok {
		slog.Warn("stale_control", "control", controlID)
		return ErrUnknownControl
	}
	return c.Unregister(ctx, rc.Activity, rc.Email)
}

// Signup submits the signup form.
// POST: On success the form is cleared and activities re-render once; on failure the form keeps its values
func (c *Controller) Signup(ctx context.Context, email, activityName string) error {
	c.mu.Lock()
	c.selection.Email = email
	c.selection.Activity = activityName
	c.mu.Unlock()

	out, err := orchestrators.ExecuteSignup(ctx,
		orchestrators.SignupInput{Email: email, Activity: activityName},
		orchestrators.SignupDeps{Backend: c.backend})
	if out.ResetForm {
		c.mu.Lock()
		c.selection.Email = ""
		c.selection.Activity = ""
		c.mu.Unlock()
	}
	c.apply(ctx, ActionSignup, out, err)
	return err
}

// Unregister removes an email from an activity.
func (c *Controller) Unregister(ctx context.Context, activityName, email string) error {
	out, err := orchestrators.ExecuteUnregister(ctx,
		orchestrators.UnregisterInput{Activity: activityName, Email: email},
		orchestrators.UnregisterDeps{Backend: c.backend})
	c.apply(ctx, ActionUnregister, out, err)
	return err
}

// Login submits the login form.
// POST: On success auth is refreshed to completion before activities re-render
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	c.selection.Username = username
	c.mu.Unlock()

	out, err := orchestrators.ExecuteLogin(ctx,
		orchestrators.LoginInput{Username: username, Password: password},
		orchestrators.LoginDeps{Backend: c.backend})
	if out.ResetForm {
		c.mu.Lock()
		c.selection.Username = ""
		c.mu.Unlock()
	}
	c.apply(ctx, ActionLogin, out, err)
	return err
}

// Logout ends the admin session.
func (c *Controller) Logout(ctx context.Context) error {
	out, err := orchestrators.ExecuteLogout(ctx, orchestrators.LogoutDeps{Backend: c.backend})
	c.apply(ctx, ActionLogout, out, err)
	return err
}

// apply shows the outcome and runs the requested refetches in order: auth first, then activities.
func (c *Controller) apply(ctx context.Context, action string, out orchestrators.Outcome, err error) {
	c.banner.Show(out.Message, out.Kind)
	c.recorder.RecordAction(action, resultOf(err))

	if out.RefreshAuth {
		c.RefreshAuthState(ctx)
	}
	if out.RefreshActivities {
		c.RenderActivities(ctx)
	}
}

func resultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return ResultRejected
	}
	return ResultFailed
}

// ToggleAdminPanel opens or closes the admin panel.
func (c *Controller) ToggleAdminPanel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = !c.panelOpen
	return c.panelOpen
}

// Close cancels the banner's pending hide.
func (c *Controller) Close() {
	c.banner.Close()
}
