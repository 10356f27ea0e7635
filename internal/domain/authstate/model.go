package authstate

// Status labels shown next to the admin controls.
const (
	LabelPrivileged   = "Admin mode enabled"
	LabelUnprivileged = "Not signed in"
)

// SignupDisabledClass is applied to the signup container when not privileged.
const SignupDisabledClass = "signup-disabled"

// State is the client's view of the backend session: privileged or not.
// It is re-derived from the backend after every relevant event.
type State struct {
	Privileged bool
}

// Unprivileged is the fail-closed state.
var Unprivileged = State{}

// UI is the set of toggles derived from State.
type UI struct {
	StatusLabel          string `json:"status_label"`
	LoginFormVisible     bool   `json:"login_form_visible"`
	LogoutVisible        bool   `json:"logout_visible"`
	SignupEnabled        bool   `json:"signup_enabled"`
	SignupContainerClass string `json:"signup_container_class"`
}

// UI derives visibility/enablement of privileged controls.
// POST: login form and logout control are mutually exclusive
func (s State) UI() UI {
	if s.Privileged {
		return UI{
			StatusLabel:   LabelPrivileged,
			LogoutVisible: true,
			SignupEnabled: true,
		}
	}
	return UI{
		StatusLabel:          LabelUnprivileged,
		LoginFormVisible:     true,
		SignupContainerClass: SignupDisabledClass,
	}
}
