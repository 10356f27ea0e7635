package browser_test

import (
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"

	"signup/internal/domain/activity"
)

func chessClub() activity.Activity {
	return activity.Activity{
		Name:            "Chess Club",
		Description:     "Learn strategies",
		Schedule:        "Fridays, 3:30 PM",
		MaxParticipants: 12,
		Participants:    []string{"michael@mergington.edu"},
	}
}

// TestPage_Unprivileged verifies the list renders and signup is disabled before login.
func TestPage_Unprivileged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t, chessClub())
	page := app.newPage(t)

	if got := text(t, page, "#activities-list h4"); got != "Chess Club" {
		t.Errorf("first card title = %q, want Chess Club", got)
	}
	if got := text(t, page, ".activity-availability"); !strings.Contains(got, "11 spots left") {
		t.Errorf("availability = %q", got)
	}
	if n, _ := page.Locator(".delete-btn").Count(); n != 0 {
		t.Errorf("removal controls = %d before login, want 0", n)
	}
	disabled, err := page.Locator("#email").IsDisabled()
	if err != nil {
		t.Fatalf("IsDisabled: %v", err)
	}
	if !disabled {
		t.Error("email input should be disabled before login")
	}
}

// TestPage_WrongPassword verifies the backend detail is shown and admin mode stays off.
func TestPage_WrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t, chessClub())
	page := app.newPage(t)

	page.Locator("#admin-toggle").Click()
	page.Locator("#admin-username").Fill(adminUser)
	page.Locator("#admin-password").Fill("wrong")
	page.Locator("#login-form button[type=submit]").Click()

	if err := page.Locator("#message.error").WaitFor(); err != nil {
		t.Fatalf("error banner not shown: %v", err)
	}
	if got := text(t, page, "#message"); got != "Invalid credentials" {
		t.Errorf("banner = %q, want Invalid credentials", got)
	}
	if got := text(t, page, "#admin-status"); got != "Not signed in" {
		t.Errorf("status = %q", got)
	}
}

// TestPage_SignupAndRemove walks the admin flow: login, sign a student up, remove them.
func TestPage_SignupAndRemove(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t, chessClub())
	page := app.newPage(t)
	app.login(t, page)

	if n, _ := page.Locator(".delete-btn").Count(); n != 1 {
		t.Fatalf("removal controls = %d after login, want 1", n)
	}

	page.Locator("#email").Fill("new@mergington.edu")
	if _, err := page.Locator("#activity").SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice("Chess Club"),
	}); err != nil {
		t.Fatalf("select activity: %v", err)
	}
	page.Locator("#signup-form button[type=submit]").Click()

	if err := page.Locator("#message.success").WaitFor(); err != nil {
		t.Fatalf("success banner not shown: %v", err)
	}
	if got := text(t, page, "#message"); got != "Signed up new@mergington.edu for Chess Club" {
		t.Errorf("banner = %q", got)
	}
	if got := text(t, page, ".activity-availability"); !strings.Contains(got, "10 spots left") {
		t.Errorf("availability after signup = %q", got)
	}
	if v, _ := page.Locator("#email").InputValue(); v != "" {
		t.Errorf("email input = %q after success, want cleared", v)
	}

	remove := page.Locator(`.delete-btn[data-email="new@mergington.edu"]`)
	if err := remove.Click(); err != nil {
		t.Fatalf("click remove: %v", err)
	}
	if err := page.Locator("#message").Filter(playwright.LocatorFilterOptions{
		HasText: "Unregistered new@mergington.edu from Chess Club",
	}).WaitFor(); err != nil {
		t.Fatalf("unregister banner not shown: %v", err)
	}
	if n, _ := page.Locator(".delete-btn").Count(); n != 1 {
		t.Errorf("removal controls = %d after remove, want 1", n)
	}
}

// TestPage_Logout verifies logging out hides the privileged controls again.
func TestPage_Logout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t, chessClub())
	page := app.newPage(t)
	app.login(t, page)

	if err := page.Locator("#logout-button").Click(); err != nil {
		t.Fatalf("click logout: %v", err)
	}
	if err := page.Locator("#admin-status").Filter(playwright.LocatorFilterOptions{
		HasText: "Not signed in",
	}).WaitFor(); err != nil {
		t.Fatalf("logout did not clear admin mode: %v", err)
	}
	if n, _ := page.Locator(".delete-btn").Count(); n != 0 {
		t.Errorf("removal controls = %d after logout, want 0", n)
	}
}
