package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store/memory"
)

func sampleStore() *memory.Store {
	return memory.New([]core.Resident{
		{ResidentID: "A001", Alley: "A", HouseNumber: 1, ResidentName: "Ali"},
		{ResidentID: "B010", Alley: "B", HouseNumber: 10, ResidentName: "Chong"},
	}, nil)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(sampleStore(), "every minute", time.Second, log.Discard())
	assert.Error(t, err)
}

func TestNotReadyBeforeFirstProbe(t *testing.T) {
	p, err := New(sampleStore(), "@every 1m", time.Second, log.Discard())
	require.NoError(t, err)

	ok, detail := p.Ready()

	assert.False(t, ok)
	assert.Equal(t, "not probed yet", detail)
}

func TestCheckTracksStoreHealth(t *testing.T) {
	st := sampleStore()
	p, err := New(st, "*/5 * * * *", time.Second, log.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	res := p.Check(ctx)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Alleys)
	ok, _ := p.Ready()
	assert.True(t, ok)

	st.SetError(errors.New("connection refused"))
	res = p.Check(ctx)
	assert.False(t, res.OK)
	ok, detail := p.Ready()
	assert.False(t, ok)
	assert.Contains(t, detail, "connection refused")

	st.SetError(nil)
	p.Check(ctx)
	ok, _ = p.Ready()
	assert.True(t, ok)
	assert.False(t, p.Last().CheckedAt.IsZero())
}

func TestRunProbesImmediatelyAndStops(t *testing.T) {
	p, err := New(sampleStore(), "@every 1h", time.Second, log.Discard())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		ok, _ := p.Ready()
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
