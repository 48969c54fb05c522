// Package lookup holds the view state of one browser session: the
// selection controller, the alley/resident picker and the payment
// history viewer.
package lookup

import (
	"sync"

	"halya/internal/core"
)

// Mode is the component the controller currently shows.
type Mode int

const (
	ModePicker Mode = iota
	ModeViewer
)

func (m Mode) String() string {
	if m == ModeViewer {
		return "viewer"
	}
	return "picker"
}

// Controller holds the current selection: none or exactly one resident.
// While nothing is selected the picker is shown, otherwise the viewer.
type Controller struct {
	mu       sync.RWMutex
	selected *core.Resident
	version  uint64
}

func NewController() *Controller {
	return &Controller{}
}

// Selection returns the selected resident, if any.
func (c *Controller) Selection() (core.Resident, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return core.Resident{}, false
	}
	return *c.selected, true
}

// Select makes r the current selection, replacing any previous one.
func (c *Controller) Select(r core.Resident) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &r
	c.version++
}

// Clear returns to the no-selection state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
	c.version++
}

// Mode reports which component is active.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return ModePicker
	}
	return ModeViewer
}

// Version increases on every Select or Clear.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
