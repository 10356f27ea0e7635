package viewstate

import (
	"strconv"

	"signup/internal/application/view"
	"signup/internal/domain/authstate"
	"signup/internal/domain/banner"
)

// Snapshot is a consistent copy of the page for rendering.
type Snapshot struct {
	Privileged   bool          `json:"privileged"`
	Auth         authstate.UI  `json:"auth"`
	Banner       banner.State  `json:"banner"`
	BannerClass  string        `json:"banner_class"`
	Activities   *view.Node    `json:"activities"`
	Options      []view.Option `json:"options"`
	LoadFailed   bool          `json:"load_failed"`
	Selection    Selection     `json:"selection"`
	PanelOpen    bool          `json:"panel_open"`
	AriaExpanded string        `json:"aria_expanded"`
}

// Snapshot copies the current page state.
// The node tree is shared; renders replace it wholesale and never mutate it.
func (c *Controller) Snapshot() Snapshot {
	b := c.banner.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	options := make([]view.Option, len(c.options))
	copy(options, c.options)

	return Snapshot{
		Privileged:   c.auth.Privileged,
		Auth:         c.auth.UI(),
		Banner:       b,
		BannerClass:  b.Class(),
		Activities:   c.list,
		Options:      options,
		LoadFailed:   c.failed,
		Selection:    c.selection,
		PanelOpen:    c.panelOpen,
		AriaExpanded: strconv.FormatBool(c.panelOpen),
	}
}

// BoundControls returns the number of removal controls with a live handler.
func (c *Controller) BoundControls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}
