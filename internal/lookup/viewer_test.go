package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halya/internal/core"
)

var (
	ali   = core.Resident{ResidentID: "A001", Alley: "A", HouseNumber: 1, ResidentName: "Ali"}
	chong = core.Resident{ResidentID: "B010", Alley: "B", HouseNumber: 10, ResidentName: "Chong"}
	siti  = core.Resident{ResidentID: "A002", Alley: "A", HouseNumber: 2, ResidentName: "Siti"}
)

func TestViewerWithoutResidentRendersNothing(t *testing.T) {
	st := newGatedStore(testStore())
	v := NewViewer(st, NewController(), quietOpts()...)

	v.Sync(context.Background(), core.Resident{}, false)

	view := v.Snapshot()
	assert.False(t, view.Visible())
	assert.False(t, view.ShowHistory())
	assert.True(t, view.History.IsIdle())
	assert.Equal(t, int32(0), st.paymentCalls.Load())
}

func TestViewerLoadsHistoryWithSummary(t *testing.T) {
	sink := &recordingSink{}
	v := NewViewer(testStore(), NewController(), quietOpts(WithEventSink(sink))...)

	v.Show(context.Background(), ali)

	view := v.Snapshot()
	require.True(t, view.History.IsOK())
	payments := view.History.Data.Payments
	require.Len(t, payments, 2)
	assert.Equal(t, 2024, payments[0].YearOrZero())
	assert.Equal(t, 2023, payments[1].YearOrZero())

	sum := view.History.Data.Summary
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(80)), "total = %s", sum.Total)
	assert.Equal(t, 2, sum.Count)
	assert.True(t, sum.Average.Equal(decimal.NewFromInt(40)), "average = %s", sum.Average)

	require.Len(t, view.Groups, 1)
	assert.Equal(t, core.CategoryAnnual, view.Groups[0].Category)
	assert.Equal(t, []EventKind{EventResidentViewed}, sink.kinds())
}

func TestViewerEmptyHistory(t *testing.T) {
	v := NewViewer(testStore(), NewController(), quietOpts()...)

	v.Show(context.Background(), siti)

	view := v.Snapshot()
	require.True(t, view.History.IsOK())
	assert.True(t, view.History.Data.IsEmpty())
	assert.NotNil(t, view.History.Data.Payments)
	sum := view.History.Data.Summary
	assert.True(t, sum.Total.IsZero())
	assert.Equal(t, 0, sum.Count)
	assert.True(t, sum.Average.IsZero())
	assert.Empty(t, view.Groups)
}

func TestViewerFailureThenRetry(t *testing.T) {
	base := testStore()
	v := NewViewer(base, NewController(), quietOpts()...)
	ctx := context.Background()

	base.SetError(errors.New("timeout"))
	v.Show(ctx, ali)

	view := v.Snapshot()
	require.True(t, view.History.IsFailed())
	assert.Equal(t, "timeout", view.History.Reason)
	assert.False(t, view.ShowHistory())

	base.SetError(nil)
	require.NoError(t, v.Retry(ctx))

	view = v.Snapshot()
	require.True(t, view.History.IsOK())
	assert.Equal(t, 2, view.History.Data.Summary.Count)
}

func TestViewerRetryWithoutResident(t *testing.T) {
	v := NewViewer(testStore(), NewController(), quietOpts()...)

	err := v.Retry(context.Background())

	assert.ErrorIs(t, err, core.ErrNoResidentChosen)
}

func TestViewerRefetchKeepsPreviousHistoryOnFailure(t *testing.T) {
	base := testStore()
	v := NewViewer(base, NewController(), quietOpts()...)
	ctx := context.Background()

	v.Show(ctx, ali)
	base.SetError(errors.New("offline"))
	v.Show(ctx, ali)

	view := v.Snapshot()
	require.True(t, view.History.IsFailed())
	assert.Len(t, view.History.Data.Payments, 2)
	assert.True(t, view.ShowHistory())
}

func TestViewerSwitchingResidentDropsPreviousHistory(t *testing.T) {
	st := newGatedStore(testStore())
	v := NewViewer(st, NewController(), quietOpts()...)
	ctx := context.Background()

	v.Show(ctx, ali)
	<-st.started

	st.hold("resident:B010")
	done := make(chan struct{})
	go func() {
		defer close(done)
		v.Show(ctx, chong)
	}()
	<-st.started

	view := v.Snapshot()
	assert.Equal(t, "B010", view.Resident.ResidentID)
	assert.True(t, view.History.IsLoading())
	assert.Empty(t, view.History.Data.Payments)

	st.release("resident:B010")
	<-done
	view = v.Snapshot()
	require.True(t, view.History.IsOK())
	require.Len(t, view.History.Data.Payments, 1)
	assert.Equal(t, "B010", view.History.Data.Payments[0].ResidentID)
}

func TestViewerDiscardsStaleHistory(t *testing.T) {
	st := newGatedStore(testStore())
	sink := &recordingSink{}
	v := NewViewer(st, NewController(), quietOpts(WithEventSink(sink))...)
	ctx := context.Background()

	st.hold("resident:A001")
	done := make(chan struct{})
	go func() {
		defer close(done)
		v.Show(ctx, ali)
	}()
	require.Equal(t, "resident:A001", <-st.started)

	v.Show(ctx, chong)
	<-st.started
	st.release("resident:A001")
	<-done

	view := v.Snapshot()
	assert.Equal(t, "B010", view.Resident.ResidentID)
	require.True(t, view.History.IsOK())
	require.Len(t, view.History.Data.Payments, 1)
	assert.Equal(t, "B010", view.History.Data.Payments[0].ResidentID)
	assert.Contains(t, sink.kinds(), EventFetchDiscarded)
}

func TestViewerBackClearsController(t *testing.T) {
	c := NewController()
	c.Select(ali)
	v := NewViewer(testStore(), c, quietOpts()...)
	v.Show(context.Background(), ali)

	v.Back()

	_, ok := c.Selection()
	assert.False(t, ok)
	assert.False(t, v.Snapshot().Visible())
}

func TestViewerClassify(t *testing.T) {
	v := NewViewer(testStore(), NewController(), quietOpts()...)

	assert.Equal(t, core.CategoryMembership, v.Classify("Annual Membership Fee"))
	assert.Equal(t, core.CategoryAnnual, v.Classify("Annual Fee 2024"))
	assert.Equal(t, core.CategoryGuard, v.Classify("Guard Fee - Raya 2025"))
	assert.Equal(t, core.CategoryExcess, v.Classify("Excess Payment Brought Forward 2025"))
	assert.Equal(t, core.CategoryOther, v.Classify("Donation"))
}
