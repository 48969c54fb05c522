package core

import (
	"sort"
	"strings"
)

// DistinctAlleys reduces raw alley values to the unique non-empty ones,
// sorted ascending.
func DistinctAlleys(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// SortResidents orders residents by house number, then id for ties.
func SortResidents(rs []Resident) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].HouseNumber != rs[j].HouseNumber {
			return rs[i].HouseNumber < rs[j].HouseNumber
		}
		return rs[i].ResidentID < rs[j].ResidentID
	})
}

// SortPayments orders payments by year descending then description ascending.
// Rows without a year sort last.
func SortPayments(ps []Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		yi, yj := ps[i].Year, ps[j].Year
		switch {
		case yi == nil && yj != nil:
			return false
		case yi != nil && yj == nil:
			return true
		case yi != nil && yj != nil && *yi != *yj:
			return *yi > *yj
		}
		return ps[i].Description < ps[j].Description
	})
}
