package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"halya/internal/core"
)

func sample() *Store {
	return New(
		[]core.Resident{
			{ResidentID: "B010", Alley: "B", HouseNumber: 10, ResidentName: "Chong"},
			{ResidentID: "A002", Alley: "A", HouseNumber: 2, ResidentName: "Siti"},
			{ResidentID: "A001", Alley: "A", HouseNumber: 1, ResidentName: "Ali"},
			{ResidentID: "A001", Alley: "A", HouseNumber: 1, ResidentName: "Duplicate"},
			{ResidentID: "X000", Alley: "", HouseNumber: 0, ResidentName: "No alley"},
		},
		[]core.Payment{
			{ResidentID: "A001", Description: "Guard Fee", Amount: decimal.NewFromInt(30), Year: core.IntPtr(2024)},
			{ResidentID: "A001", Description: "Annual Fee 2023", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2023)},
			{ResidentID: "A001", Description: "Annual Fee 2024", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2024)},
			{ResidentID: "B010", Description: "Annual Fee 2024", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2024)},
		},
	)
}

func TestAlleyValuesKeepsRawColumn(t *testing.T) {
	s := sample()
	got, err := s.AlleyValues(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 || got[0] != "" || got[1] != "A" || got[3] != "B" {
		t.Fatalf("unexpected alley values: %q", got)
	}
	if d := core.DistinctAlleys(got); len(d) != 2 || d[0] != "A" || d[1] != "B" {
		t.Fatalf("unexpected distinct alleys: %q", d)
	}
}

func TestResidentsByAlleyOrderedByHouse(t *testing.T) {
	s := sample()
	got, err := s.ResidentsByAlley(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ResidentID != "A001" || got[1].ResidentID != "A002" {
		t.Fatalf("unexpected residents: %+v", got)
	}
	if got[0].ResidentName != "Ali" {
		t.Fatalf("expected first duplicate to win, got %q", got[0].ResidentName)
	}

	none, err := s.ResidentsByAlley(context.Background(), "Z")
	if err != nil || len(none) != 0 || none == nil {
		t.Fatalf("expected empty non-nil list, got %v err=%v", none, err)
	}
}

func TestPaymentsByResidentOrdered(t *testing.T) {
	s := sample()
	got, err := s.PaymentsByResident(context.Background(), "A001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Annual Fee 2024", "Guard Fee", "Annual Fee 2023"}
	if len(got) != len(want) {
		t.Fatalf("expected %d payments, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Description != w {
			t.Fatalf("row %d: expected %q, got %q", i, w, got[i].Description)
		}
		if got[i].ID == 0 {
			t.Fatalf("row %d: expected synthetic id", i)
		}
	}
}

func TestResidentLookup(t *testing.T) {
	s := sample()
	r, err := s.Resident(context.Background(), "B010")
	if err != nil || r.ResidentName != "Chong" {
		t.Fatalf("unexpected resident %+v err=%v", r, err)
	}
	if _, err := s.Resident(context.Background(), "nope"); !errors.Is(err, core.ErrResidentNotFound) {
		t.Fatalf("expected ErrResidentNotFound, got %v", err)
	}
}

func TestReplaceNumbersMissingIDsAfterHighest(t *testing.T) {
	s := New(nil, []core.Payment{
		{ResidentID: "A001", Description: "Annual Fee 2023", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2023)},
		{ID: 2, ResidentID: "A001", Description: "Annual Fee 2024", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2024)},
		{ID: 7, ResidentID: "A001", Description: "Annual Fee 2025", Amount: decimal.NewFromInt(50), Year: core.IntPtr(2025)},
		{ResidentID: "A001", Description: "Guard Fee", Amount: decimal.NewFromInt(30), Year: core.IntPtr(2025)},
	})

	ps, err := s.PaymentsByResident(context.Background(), "A001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make(map[int64]string, len(ps))
	for _, p := range ps {
		if prev, dup := ids[p.ID]; dup {
			t.Fatalf("id %d shared by %q and %q", p.ID, prev, p.Description)
		}
		ids[p.ID] = p.Description
	}
	want := map[int64]string{2: "Annual Fee 2024", 7: "Annual Fee 2025", 8: "Annual Fee 2023", 9: "Guard Fee"}
	for id, desc := range want {
		if ids[id] != desc {
			t.Errorf("id %d = %q, want %q", id, ids[id], desc)
		}
	}
}

func TestSetErrorAndCancelledContext(t *testing.T) {
	s := sample()
	boom := errors.New("boom")
	s.SetError(boom)
	if _, err := s.AlleyValues(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	s.SetError(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.PaymentsByResident(ctx, "A001"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	// No files -> empty store
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, p := s.Counts(); r != 0 || p != 0 {
		t.Fatalf("expected empty store, got %d/%d", r, p)
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(ResidentsFile, "resident_id,alley,house_number,resident_name,sheet_name\nA001,A,1,Ali,Fee Halya 1\nA002,A,2,Siti,Fee Halya 1\n")
	mustWrite(PaymentsFile, "id,resident_id,payment_date,description,amount,year,sheet_name\n1,A001,,Annual Fee 2024,50.00,2024,Fee Halya 1\n2,A001,2025-04-01,Guard Fee - April 2025,30,2025,Fee Halya 1\n")

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, p := s.Counts(); r != 2 || p != 2 {
		t.Fatalf("expected 2/2, got %d/%d", r, p)
	}
	ps, _ := s.PaymentsByResident(context.Background(), "A001")
	if ps[0].YearOrZero() != 2025 || ps[0].PaymentDate == nil {
		t.Fatalf("unexpected first payment %+v", ps[0])
	}

	mustWrite(PaymentsFile, "id,resident_id,payment_date,description,amount,year,sheet_name\n1,A001,,Annual Fee,abc,2024,\n")
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
}
