package store

import (
	"context"
	"errors"

	"halya/internal/core"
)

var (
	// ErrNotConfigured is returned by backends missing endpoint or credentials.
	ErrNotConfigured = errors.New("store not configured")
)

// Ports for outbound adapters. All of them are read only.
type (
	// AlleyLister returns the raw alley column of every resident, ordered by alley.
	// Callers reduce it with core.DistinctAlleys.
	AlleyLister interface {
		AlleyValues(ctx context.Context) ([]string, error)
	}

	// ResidentLister returns the residents of one alley ordered by house number.
	ResidentLister interface {
		ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error)
	}

	// ResidentReader returns a single resident, core.ErrResidentNotFound if absent.
	ResidentReader interface {
		Resident(ctx context.Context, residentID string) (core.Resident, error)
	}

	// PaymentLister returns the payments of one resident ordered by year
	// descending then description ascending.
	PaymentLister interface {
		PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error)
	}

	Store interface {
		AlleyLister
		ResidentLister
		ResidentReader
		PaymentLister
	}
)
