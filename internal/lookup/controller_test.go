package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControllerStartsEmpty(t *testing.T) {
	c := NewController()

	_, ok := c.Selection()
	assert.False(t, ok)
	assert.Equal(t, ModePicker, c.Mode())
	assert.Equal(t, "picker", c.Mode().String())
}

func TestControllerSelectReplacesSelection(t *testing.T) {
	c := NewController()

	c.Select(ali)
	c.Select(chong)

	got, ok := c.Selection()
	assert.True(t, ok)
	assert.Equal(t, chong, got)
	assert.Equal(t, ModeViewer, c.Mode())
	assert.Equal(t, uint64(2), c.Version())
}

func TestControllerClear(t *testing.T) {
	c := NewController()
	c.Select(ali)

	c.Clear()

	_, ok := c.Selection()
	assert.False(t, ok)
	assert.Equal(t, ModePicker, c.Mode())
	assert.Equal(t, uint64(2), c.Version())
}

func TestControllerSelectionIsACopy(t *testing.T) {
	c := NewController()
	r := ali
	c.Select(r)

	r.ResidentName = "changed"

	got, _ := c.Selection()
	assert.Equal(t, "Ali", got.ResidentName)
}
