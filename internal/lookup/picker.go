package lookup

import (
	"context"
	"strings"
	"sync"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store"
)

// PickerStore is what the picker reads.
type PickerStore interface {
	store.AlleyLister
	store.ResidentLister
}

// PickerView is an immutable snapshot for rendering.
type PickerView struct {
	Mounted       bool
	Alleys        core.FetchState[[]string]
	SelectedAlley string
	Residents     core.FetchState[[]core.Resident]
}

// ResidentsVisible reports whether the resident list should be shown.
// It is hidden while loading.
func (v PickerView) ResidentsVisible() bool {
	return v.SelectedAlley != "" && !v.Residents.IsLoading()
}

// Picker loads the distinct alleys, then the residents of the chosen
// alley, and hands the chosen resident to the controller.
//
// Every fetch takes a generation number; a result is applied only if no
// newer fetch of the same kind started meanwhile.
type Picker struct {
	store      PickerStore
	controller *Controller
	opts       options

	mu            sync.Mutex
	mounted       bool
	alleys        core.FetchState[[]string]
	alleysGen     uint64
	selectedAlley string
	residents     core.FetchState[[]core.Resident]
	residentsGen  uint64
}

func NewPicker(st PickerStore, controller *Controller, opts ...Option) *Picker {
	o := buildOptions(opts)
	o.logger = o.logger.WithComponent(log.ComponentPicker)
	return &Picker{
		store:      st,
		controller: controller,
		opts:       o,
		alleys:     core.Idle[[]string](),
		residents:  core.Idle[[]core.Resident](),
	}
}

// Mount shows the picker. Alleys are loaded once per mount.
func (p *Picker) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.mounted {
		p.mu.Unlock()
		return
	}
	p.mounted = true
	p.mu.Unlock()

	p.LoadAlleys(ctx)
}

// Unmount hides the picker and forgets its state. Fetches still in
// flight are invalidated.
func (p *Picker) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	p.alleysGen++
	p.residentsGen++
	p.alleys = core.Idle[[]string]()
	p.selectedAlley = ""
	p.residents = core.Idle[[]core.Resident]()
}

// Mounted reports whether the picker is shown.
func (p *Picker) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}

// LoadAlleys fetches the alley column and keeps the distinct non-empty
// values in ascending order. On failure the alley set is empty.
func (p *Picker) LoadAlleys(ctx context.Context) {
	p.mu.Lock()
	p.alleysGen++
	gen := p.alleysGen
	p.alleys = core.Loading[[]string](nil)
	p.mu.Unlock()

	fctx, cancel := p.opts.fetchContext(ctx)
	values, err := p.store.AlleyValues(fctx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.alleysGen {
		p.opts.fetchDiscarded(ctx, log.ComponentPicker, log.OpLoadAlleys, gen)
		return
	}
	if err != nil {
		p.alleys = core.Failed[[]string](err.Error(), []string{})
		p.opts.fetchFailed(ctx, log.ComponentPicker, log.OpLoadAlleys, "", "", err)
		return
	}
	p.alleys = core.Loaded(core.DistinctAlleys(values))
}

// SelectAlley records alley as the current choice and loads its
// residents. An empty alley clears the resident list without a fetch.
func (p *Picker) SelectAlley(ctx context.Context, alley string) {
	alley = strings.TrimSpace(alley)

	p.mu.Lock()
	p.selectedAlley = alley
	if alley == "" {
		p.residentsGen++
		p.residents = core.Idle[[]core.Resident]()
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.LoadResidents(ctx, alley)
}

// LoadResidents always fetches afresh, even for the alley already shown.
// While the fetch is in flight the list is empty and hidden.
func (p *Picker) LoadResidents(ctx context.Context, alley string) {
	p.mu.Lock()
	p.residentsGen++
	gen := p.residentsGen
	p.residents = core.Loading[[]core.Resident](nil)
	p.mu.Unlock()

	fctx, cancel := p.opts.fetchContext(ctx)
	list, err := p.store.ResidentsByAlley(fctx, alley)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.residentsGen || p.selectedAlley != alley {
		p.opts.fetchDiscarded(ctx, log.ComponentPicker, log.OpLoadResidents, gen)
		return
	}
	if err != nil {
		p.residents = core.Failed(err.Error(), []core.Resident{})
		p.opts.fetchFailed(ctx, log.ComponentPicker, log.OpLoadResidents, alley, "", err)
		return
	}
	if list == nil {
		list = []core.Resident{}
	}
	p.residents = core.Loaded(list)
}

// Retry repeats whichever fetch failed last: alleys first, then residents.
func (p *Picker) Retry(ctx context.Context) {
	p.mu.Lock()
	alleysFailed := p.alleys.IsFailed()
	residentsFailed := p.residents.IsFailed()
	alley := p.selectedAlley
	p.mu.Unlock()

	if alleysFailed {
		p.LoadAlleys(ctx)
	}
	if residentsFailed && alley != "" {
		p.LoadResidents(ctx, alley)
	}
}

// Pick forwards the resident with residentID from the current list to
// the controller.
func (p *Picker) Pick(residentID string) error {
	p.mu.Lock()
	var (
		chosen core.Resident
		found  bool
	)
	if p.residents.IsOK() {
		for _, r := range p.residents.Data {
			if r.ResidentID == residentID {
				chosen, found = r, true
				break
			}
		}
	}
	p.mu.Unlock()

	if !found {
		return core.ErrResidentNotFound
	}
	p.controller.Select(chosen)
	return nil
}

// Snapshot returns the current state for rendering.
func (p *Picker) Snapshot() PickerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PickerView{
		Mounted:       p.mounted,
		Alleys:        p.alleys,
		SelectedAlley: p.selectedAlley,
		Residents:     p.residents,
	}
}
