package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"halya/internal/core"
	"halya/internal/csvfile"
)

// Seed file names inside the seed directory.
const (
	ResidentsFile = "residents.csv"
	PaymentsFile  = "payments.csv"
)

// Store is an in-memory read model, used for development and tests.
type Store struct {
	mu        sync.RWMutex
	residents []core.Resident
	payments  []core.Payment

	// err, when set, is returned by every read to simulate outages.
	err error
}

func New(residents []core.Resident, payments []core.Payment) *Store {
	s := &Store{}
	s.Replace(residents, payments)
	return s
}

// NewFromFiles loads residents.csv and payments.csv from base. Missing
// files yield an empty store; malformed rows are reported.
func NewFromFiles(base string) (*Store, error) {
	residents, err := readResidents(filepath.Join(base, ResidentsFile))
	if err != nil {
		return nil, err
	}
	payments, err := readPayments(filepath.Join(base, PaymentsFile))
	if err != nil {
		return nil, err
	}
	return New(residents, payments), nil
}

// Replace swaps the whole data set. Residents with a duplicate id keep
// the first occurrence. Payments without an id are numbered after the
// highest explicit id.
func (s *Store) Replace(residents []core.Resident, payments []core.Payment) {
	seen := make(map[string]struct{}, len(residents))
	rs := make([]core.Resident, 0, len(residents))
	for _, r := range residents {
		if _, ok := seen[r.ResidentID]; ok {
			continue
		}
		seen[r.ResidentID] = struct{}{}
		rs = append(rs, r)
	}
	ps := make([]core.Payment, len(payments))
	copy(ps, payments)
	var next int64
	for _, p := range ps {
		next = max(next, p.ID)
	}
	for i := range ps {
		if ps[i].ID == 0 {
			next++
			ps[i].ID = next
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.residents = rs
	s.payments = ps
}

// SetError makes every subsequent read fail with err (nil restores).
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) AlleyValues(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.residents))
	for _, r := range s.residents {
		out = append(out, r.Alley)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Resident, 0)
	for _, r := range s.residents {
		if r.Alley == alley {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	core.SortResidents(out)
	return out, nil
}

func (s *Store) Resident(ctx context.Context, residentID string) (core.Resident, error) {
	if err := s.check(ctx); err != nil {
		return core.Resident{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.residents {
		if r.ResidentID == residentID {
			return r, nil
		}
	}
	return core.Resident{}, core.ErrResidentNotFound
}

func (s *Store) PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Payment, 0)
	for _, p := range s.payments {
		if p.ResidentID == residentID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	core.SortPayments(out)
	return out, nil
}

// Counts returns the number of residents and payments held.
func (s *Store) Counts() (residents, payments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.residents), len(s.payments)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func readResidents(path string) ([]core.Resident, error) {
	rows, err := readRows[core.ResidentRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]core.Resident, 0, len(rows))
	for i, row := range rows {
		r := row.Resident()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func readPayments(path string) ([]core.Payment, error) {
	rows, err := readRows[core.PaymentRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]core.Payment, 0, len(rows))
	for i, row := range rows {
		p, err := row.Payment()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func readRows[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := csvfile.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", strings.TrimSpace(path), err)
	}
	return rows, nil
}
