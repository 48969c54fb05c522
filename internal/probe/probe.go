// Package probe tracks whether the configured store answers queries.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"halya/internal/log"
	"halya/internal/store"
)

const defaultTimeout = 5 * time.Second

// Result is the outcome of the last probe.
type Result struct {
	OK        bool
	Detail    string
	Alleys    int
	CheckedAt time.Time
	Duration  time.Duration
}

type Probe struct {
	store    store.AlleyLister
	schedule cron.Schedule
	expr     string
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu   sync.RWMutex
	last Result
}

// New parses schedule (standard cron or "@every 1m") and returns a probe
// that has not run yet.
func New(st store.AlleyLister, schedule string, timeout time.Duration, logger *log.Logger) (*Probe, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse probe schedule %q: %w", schedule, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Probe{
		store:    st,
		schedule: sched,
		expr:     schedule,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentProbe),
		now:      time.Now,
		last:     Result{Detail: "not probed yet"},
	}, nil
}

// Check queries the store once and records the result.
func (p *Probe) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.now()
	values, err := p.store.AlleyValues(ctx)
	res := Result{CheckedAt: start, Duration: p.now().Sub(start)}
	if err != nil {
		res.Detail = err.Error()
	} else {
		res.OK = true
		res.Detail = "ok"
		res.Alleys = len(values)
	}

	p.mu.Lock()
	prev := p.last
	p.last = res
	p.mu.Unlock()

	switch {
	case !res.OK && (prev.OK || prev.CheckedAt.IsZero()):
		p.logger.WarnContext(ctx, "Store probe failed", log.FieldOperation, log.OpProbe, log.FieldError, res.Detail)
	case res.OK && !prev.OK:
		p.logger.InfoContext(ctx, "Store probe succeeded", log.FieldOperation, log.OpProbe, log.FieldCount, res.Alleys)
	default:
		p.logger.DebugContext(ctx, "Store probe", log.FieldOperation, log.OpProbe, log.FieldSuccess, res.OK)
	}
	return res
}

// Ready reports the last result.
func (p *Probe) Ready() (bool, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last.OK, p.last.Detail
}

func (p *Probe) Last() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run probes immediately and then on the schedule until ctx is done.
func (p *Probe) Run(ctx context.Context) error {
	p.Check(ctx)

	c := cron.New()
	c.Schedule(p.schedule, cron.FuncJob(func() { p.Check(ctx) }))
	c.Start()
	p.logger.InfoContext(ctx, "Store probe scheduled", "schedule", p.expr)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
