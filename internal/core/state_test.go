package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchStateTransitions(t *testing.T) {
	s := Idle[[]string]()
	assert.True(t, s.IsIdle())
	assert.Equal(t, "idle", s.Status.String())

	s = Loading([]string{"A"})
	assert.True(t, s.IsLoading())
	assert.Equal(t, []string{"A"}, s.Data)

	s = Loaded([]string{"A", "B"})
	assert.True(t, s.IsOK())
	assert.Empty(t, s.Reason)

	s = Failed("timeout", s.Data)
	assert.True(t, s.IsFailed())
	assert.Equal(t, "timeout", s.Reason)
	assert.Equal(t, []string{"A", "B"}, s.Data)
	assert.Equal(t, "failed", s.Status.String())
}
