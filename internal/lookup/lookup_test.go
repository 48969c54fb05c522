package lookup

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store/memory"
)

func testStore() *memory.Store {
	return memory.New(
		[]core.Resident{
			{ResidentID: "A002", Alley: "A", HouseNumber: 2, ResidentName: "Siti"},
			{ResidentID: "A001", Alley: "A", HouseNumber: 1, ResidentName: "Ali"},
			{ResidentID: "B010", Alley: "B", HouseNumber: 10, ResidentName: "Chong"},
			{ResidentID: "C003", Alley: " ", HouseNumber: 3, ResidentName: "Blank"},
		},
		[]core.Payment{
			{ResidentID: "A001", Description: "Annual Fee 2023", Amount: decimal.NewFromInt(30), Year: core.IntPtr(2023)},
			{ResidentID: "A001", Description: "Annual Fee 2024", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2024)},
			{ResidentID: "B010", Description: "Guard Fee - May 2025", Amount: decimal.NewFromInt(20), Year: core.IntPtr(2025)},
		},
	)
}

func quietOpts(extra ...Option) []Option {
	return append([]Option{WithLogger(log.Discard())}, extra...)
}

// gatedStore blocks chosen keys until released and reports each call.
type gatedStore struct {
	*memory.Store

	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string

	alleyCalls    atomic.Int32
	residentCalls atomic.Int32
	paymentCalls  atomic.Int32
}

func newGatedStore(base *memory.Store) *gatedStore {
	return &gatedStore{
		Store:   base,
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 64),
	}
}

func (g *gatedStore) hold(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[key] = make(chan struct{})
}

func (g *gatedStore) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.gates[key]; ok {
		close(ch)
		delete(g.gates, key)
	}
}

func (g *gatedStore) wait(ctx context.Context, key string) error {
	g.mu.Lock()
	ch := g.gates[key]
	g.mu.Unlock()
	g.started <- key
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedStore) AlleyValues(ctx context.Context) ([]string, error) {
	g.alleyCalls.Add(1)
	if err := g.wait(ctx, "alleys"); err != nil {
		return nil, err
	}
	return g.Store.AlleyValues(ctx)
}

func (g *gatedStore) ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error) {
	g.residentCalls.Add(1)
	if err := g.wait(ctx, "alley:"+alley); err != nil {
		return nil, err
	}
	return g.Store.ResidentsByAlley(ctx, alley)
}

func (g *gatedStore) PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error) {
	g.paymentCalls.Add(1)
	if err := g.wait(ctx, "resident:"+residentID); err != nil {
		return nil, err
	}
	return g.Store.PaymentsByResident(ctx, residentID)
}

// recordingSink collects emitted events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}
