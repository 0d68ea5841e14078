package page

import "github.com/eyedraw/eyedraw/internal/engine"

const (
	ChangeParameter  = "param.changed"
	ChangeAdded      = "doodle.added"
	ChangeDeleted    = "doodle.deleted"
	ChangeSelected   = "doodle.selected"
	ChangeTagAdded   = "tag.added"
	ChangeTagRemoved = "tag.deleted"
	ChangeReady      = "page.ready"
)

// Change is a drawing event as seen by page watchers.
type Change struct {
	Type      string `json:"type"`
	Drawing   string `json:"drawing,omitempty"`
	DoodleID  string `json:"doodleId,omitempty"`
	Class     string `json:"class,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Value     any    `json:"value,omitempty"`
	OldValue  any    `json:"oldValue,omitempty"`
	Tag       string `json:"tag,omitempty"`
}

// WatchedEvents are the drawing events that become changes.
var WatchedEvents = []engine.Event{
	engine.EventParameterChanged,
	engine.EventDoodleAdded,
	engine.EventDoodleDeleted,
	engine.EventDoodleSelected,
	engine.EventTagAdded,
	engine.EventTagDeleted,
}

// ChangeOf converts a drawing notification. It reports false for events
// watchers do not see.
func ChangeOf(n engine.Notification) (Change, bool) {
	c := Change{Drawing: n.Drawing.Name}
	if n.Doodle != nil {
		c.DoodleID = n.Doodle.Base().ID
		c.Class = n.Doodle.ClassName()
	}
	switch n.Event {
	case engine.EventParameterChanged:
		if n.Change == nil {
			return c, false
		}
		c.Type = ChangeParameter
		c.Parameter = n.Change.Parameter
		c.Value = n.Change.Value
		c.OldValue = n.Change.OldValue
	case engine.EventDoodleAdded:
		c.Type = ChangeAdded
	case engine.EventDoodleDeleted:
		c.Type = ChangeDeleted
	case engine.EventDoodleSelected:
		c.Type = ChangeSelected
	case engine.EventTagAdded, engine.EventTagDeleted:
		if n.Tag == nil {
			return c, false
		}
		c.Type = ChangeTagAdded
		if n.Event == engine.EventTagDeleted {
			c.Type = ChangeTagRemoved
		}
		c.Tag = n.Tag.Text
	default:
		return c, false
	}
	return c, true
}
