package google

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"halya/internal/core"
	"halya/internal/store"
)

type fakeValues struct {
	data  map[string][][]interface{}
	err   error
	calls []string
}

func (f *fakeValues) Get(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	f.calls = append(f.calls, rng)
	if f.err != nil {
		return nil, f.err
	}
	return f.data[rng], nil
}

func newFake() *fakeValues {
	return &fakeValues{data: map[string][][]interface{}{
		"residents!A:Z": {
			{"resident_id", "alley", "house_number", "resident_name", "sheet_name"},
			{"B003", "B", "3", "Chong", "Sticker"},
			{"A012", "A", "12", "Siti", "Fee Halya 1"},
			{"A002", "A", "2", "Ali", "Fee Halya 1"},
			{"", "", "", "", ""},
		},
		"payments!A:Z": {
			{"id", "resident_id", "payment_date", "description", "amount", "year", "sheet_name"},
			{"1", "A002", "", "Annual Fee 2023", "50", "2023", "Fee Halya 1"},
			{"2", "A002", "2025-04-01", "Guard Fee - April 2025", "30.00", "2025", "Fee Halya 1"},
			{"3", "A012", "", "Annual Fee 2025", "50", "2025", "Fee Halya 1"},
		},
	}}
}

func TestClientReads(t *testing.T) {
	fake := newFake()
	c := newClient(fake, Config{SpreadsheetID: "sheet"})
	ctx := context.Background()

	alleys, err := c.AlleyValues(ctx)
	if err != nil {
		t.Fatalf("alleys: %v", err)
	}
	if strings.Join(alleys, ",") != "A,A,B" {
		t.Fatalf("unexpected alleys %v", alleys)
	}

	rs, err := c.ResidentsByAlley(ctx, "A")
	if err != nil || len(rs) != 2 || rs[0].ResidentID != "A002" || rs[1].HouseNumber != 12 {
		t.Fatalf("unexpected residents %+v err=%v", rs, err)
	}

	ps, err := c.PaymentsByResident(ctx, "A002")
	if err != nil || len(ps) != 2 {
		t.Fatalf("unexpected payments %+v err=%v", ps, err)
	}
	if ps[0].Description != "Guard Fee - April 2025" || ps[0].PaymentDate == nil {
		t.Fatalf("unexpected first payment %+v", ps[0])
	}
	if !core.ComputeSummary(ps).Total.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected total")
	}

	r, err := c.Resident(ctx, "B003")
	if err != nil || r.SheetName != "Sticker" {
		t.Fatalf("unexpected resident %+v err=%v", r, err)
	}
	if _, err := c.Resident(ctx, "nope"); !errors.Is(err, core.ErrResidentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientCustomSheetNames(t *testing.T) {
	fake := &fakeValues{data: map[string][][]interface{}{}}
	c := newClient(fake, Config{SpreadsheetID: "sheet", ResidentsSheet: "Penduduk", PaymentsSheet: "Bayaran"})
	_, _ = c.AlleyValues(context.Background())
	_, _ = c.PaymentsByResident(context.Background(), "x")
	if len(fake.calls) != 2 || fake.calls[0] != "Penduduk!A:Z" || fake.calls[1] != "Bayaran!A:Z" {
		t.Fatalf("unexpected ranges %v", fake.calls)
	}
}

func TestClientError(t *testing.T) {
	fake := &fakeValues{err: errors.New("quota exceeded")}
	c := newClient(fake, Config{SpreadsheetID: "sheet"})
	if _, err := c.ResidentsByAlley(context.Background(), "A"); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestParseResidentsMissingHeader(t *testing.T) {
	_, err := parseResidents([][]interface{}{{"alley", "name"}})
	if err == nil || !strings.Contains(err.Error(), "missing house_number,resident_id") {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestParsePaymentsBadAmount(t *testing.T) {
	_, err := parsePayments([][]interface{}{
		{"resident_id", "description", "amount"},
		{"A001", "Annual Fee", "n/a"},
	})
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row error, got %v", err)
	}
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Config{}); !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
