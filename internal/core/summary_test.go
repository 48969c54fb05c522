package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pay(id int64, desc, amount string, year int) Payment {
	return Payment{ID: id, ResidentID: "R1", Description: desc, Amount: decimal.RequireFromString(amount), Year: IntPtr(year)}
}

func TestComputeSummary(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		total   string
		count   int
		average string
	}{
		{name: "empty", amounts: nil, total: "0", count: 0, average: "0"},
		{name: "single", amounts: []string{"50"}, total: "50", count: 1, average: "50"},
		{name: "two rows", amounts: []string{"50", "30"}, total: "80", count: 2, average: "40"},
		{name: "cents", amounts: []string{"10.10", "20.20", "0.05"}, total: "30.35", count: 3, average: "10.1166666666666667"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ps []Payment
			for i, a := range tt.amounts {
				ps = append(ps, pay(int64(i+1), "x", a, 2024))
			}
			s := ComputeSummary(ps)
			assert.True(t, s.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", s.Total)
			assert.Equal(t, tt.count, s.Count)
			assert.True(t, s.Average.Equal(decimal.RequireFromString(tt.average)), "average %s", s.Average)
		})
	}
}

func TestComputeSummaryAverageTimesCount(t *testing.T) {
	ps := []Payment{pay(1, "a", "10", 2024), pay(2, "b", "10", 2024), pay(3, "c", "13.33", 2024)}
	s := ComputeSummary(ps)
	product := s.Average.Mul(decimal.NewFromInt(int64(s.Count)))
	assert.True(t, product.Sub(s.Total).Abs().LessThan(decimal.RequireFromString("0.0001")))
}

func TestNewHistoryEmpty(t *testing.T) {
	h := NewHistory(nil)
	require.NotNil(t, h.Payments)
	assert.True(t, h.IsEmpty())
	assert.Equal(t, 0, h.Summary.Count)
	assert.True(t, h.Summary.Total.IsZero())
	assert.True(t, h.Summary.Average.IsZero())
}

func TestGroupByCategory(t *testing.T) {
	ps := []Payment{
		pay(1, "Annual Fee 2025", "50", 2025),
		pay(2, "Guard Fee - May 2025", "30", 2025),
		pay(3, "Annual Fee 2024", "50", 2024),
		pay(4, "Sticker", "5", 2024),
	}
	groups := GroupByCategory(ps, nil)
	require.Len(t, groups, 3)

	assert.Equal(t, CategoryAnnual, groups[0].Category)
	assert.Equal(t, "Annual", groups[0].Label)
	assert.Len(t, groups[0].Payments, 2)
	assert.True(t, groups[0].Summary.Total.Equal(decimal.NewFromInt(100)))

	assert.Equal(t, CategoryGuard, groups[1].Category)
	assert.Equal(t, CategoryOther, groups[2].Category)
}

func TestDistinctAlleys(t *testing.T) {
	got := DistinctAlleys([]string{"B", "A", "", "B", " ", "C", "A"})
	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.Empty(t, DistinctAlleys(nil))
}

func TestSortPayments(t *testing.T) {
	ps := []Payment{
		{Description: "Annual Fee 2023", Year: IntPtr(2023)},
		{Description: "No year"},
		{Description: "Guard Fee", Year: IntPtr(2024)},
		{Description: "Annual Fee 2024", Year: IntPtr(2024)},
	}
	SortPayments(ps)
	var got []string
	for _, p := range ps {
		got = append(got, p.Description)
	}
	assert.Equal(t, []string{"Annual Fee 2024", "Guard Fee", "Annual Fee 2023", "No year"}, got)
}

func TestSortResidents(t *testing.T) {
	rs := []Resident{{ResidentID: "A010", HouseNumber: 10}, {ResidentID: "A002", HouseNumber: 2}, {ResidentID: "A001", HouseNumber: 1}}
	SortResidents(rs)
	assert.Equal(t, []int{1, 2, 10}, []int{rs[0].HouseNumber, rs[1].HouseNumber, rs[2].HouseNumber})
}
