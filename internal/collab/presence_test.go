package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceFocus(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", &PresencePayload{Drawing: "ed_right", Selection: []string{"doodle_1"}})

	assert.Nil(t, pm.Focus("c1", "Alice", "ed_right"), "already there")

	moved := pm.Focus("c1", "Alice", "ed_left")
	require.NotNil(t, moved)
	assert.Equal(t, "ed_left", moved.Drawing)
	assert.Empty(t, moved.Selection)

	fresh := pm.Focus("c2", "Bob", "ed_left")
	require.NotNil(t, fresh)
	assert.Equal(t, "Bob", fresh.DisplayName)
	assert.ElementsMatch(t, []string{"c1", "c2"}, pm.Viewers("ed_left"))

	pm.Update("c2", &PresencePayload{Cursor: &CursorPos{X: 1, Y: 2}})
	assert.Equal(t, "ed_left", pm.GetAll()["c2"].Drawing, "drawing kept when omitted")

	pm.Remove("c1")
	assert.Equal(t, []string{"c2"}, pm.Viewers("ed_left"))
}
