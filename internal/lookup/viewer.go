package lookup

import (
	"context"
	"sync"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store"
)

// ViewerView is an immutable snapshot for rendering.
type ViewerView struct {
	Resident    core.Resident
	HasResident bool
	History     core.FetchState[core.History]
	Groups      []core.CategoryGroup
}

// Visible reports whether the viewer renders anything at all.
func (v ViewerView) Visible() bool { return v.HasResident }

// ShowHistory reports whether the payment table and summary should be
// drawn: after a successful load, or while refetching data already shown.
func (v ViewerView) ShowHistory() bool {
	if !v.HasResident {
		return false
	}
	return v.History.IsOK() || len(v.History.Data.Payments) > 0
}

// Viewer shows the payment history of the selected resident.
//
// With no resident it renders nothing and issues no fetch. Switching to a
// different resident drops the previous history at once; reloading the
// same resident keeps it visible until the new result arrives.
type Viewer struct {
	store      store.PaymentLister
	controller *Controller
	opts       options

	mu       sync.Mutex
	resident *core.Resident
	history  core.FetchState[core.History]
	gen      uint64
}

func NewViewer(st store.PaymentLister, controller *Controller, opts ...Option) *Viewer {
	o := buildOptions(opts)
	o.logger = o.logger.WithComponent(log.ComponentViewer)
	return &Viewer{
		store:      st,
		controller: controller,
		opts:       o,
		history:    core.Idle[core.History](),
	}
}

// Sync points the viewer at resident (or at nobody when ok is false) and
// loads the history if the resident changed.
func (v *Viewer) Sync(ctx context.Context, resident core.Resident, ok bool) {
	if !ok {
		v.Reset()
		return
	}

	v.mu.Lock()
	same := v.resident != nil && v.resident.Key() == resident.Key()
	if same && !v.history.IsIdle() {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	v.LoadPayments(ctx, resident)
}

// Show loads the history of resident unconditionally.
func (v *Viewer) Show(ctx context.Context, resident core.Resident) {
	v.LoadPayments(ctx, resident)
}

// LoadPayments fetches every payment of resident, newest year first with
// undated years last, then by description, and computes the summary
// from the same rows.
func (v *Viewer) LoadPayments(ctx context.Context, resident core.Resident) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	var prev core.History
	if v.resident != nil && v.resident.Key() == resident.Key() {
		prev = v.history.Data
	}
	r := resident
	v.resident = &r
	v.history = core.Loading(prev)
	v.mu.Unlock()

	fctx, cancel := v.opts.fetchContext(ctx)
	payments, err := v.store.PaymentsByResident(fctx, resident.ResidentID)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		v.opts.fetchDiscarded(ctx, log.ComponentViewer, log.OpLoadPayments, gen)
		return
	}
	if err != nil {
		v.history = core.Failed(err.Error(), prev)
		v.opts.fetchFailed(ctx, log.ComponentViewer, log.OpLoadPayments, resident.Alley, resident.ResidentID, err)
		return
	}
	v.history = core.Loaded(core.NewHistory(payments))
	v.opts.logger.DebugContext(ctx, "Payments loaded",
		log.FieldResidentID, resident.ResidentID,
		log.FieldCount, len(payments),
		log.FieldTotal, v.history.Data.Summary.Total.StringFixed(2),
	)
	v.opts.emit(ctx, Event{
		Kind:       EventResidentViewed,
		Operation:  log.OpLoadPayments,
		Alley:      resident.Alley,
		ResidentID: resident.ResidentID,
		Count:      len(payments),
	})
}

// Reset forgets the resident and invalidates any fetch in flight.
func (v *Viewer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.resident = nil
	v.history = core.Idle[core.History]()
}

// Retry reloads the history of the current resident.
func (v *Viewer) Retry(ctx context.Context) error {
	v.mu.Lock()
	if v.resident == nil {
		v.mu.Unlock()
		return core.ErrNoResidentChosen
	}
	r := *v.resident
	v.mu.Unlock()

	v.LoadPayments(ctx, r)
	return nil
}

// Back returns to the picker.
func (v *Viewer) Back() {
	v.Reset()
	v.controller.Clear()
}

// Classify maps a payment description to its display category.
func (v *Viewer) Classify(description string) core.Category {
	return v.opts.classifier.Classify(description)
}

// Snapshot returns the current state for rendering.
func (v *Viewer) Snapshot() ViewerView {
	v.mu.Lock()
	defer v.mu.Unlock()
	view := ViewerView{History: v.history}
	if v.resident != nil {
		view.Resident = *v.resident
		view.HasResident = true
	}
	if len(v.history.Data.Payments) > 0 {
		view.Groups = core.GroupByCategory(v.history.Data.Payments, v.opts.classifier)
	}
	return view
}
