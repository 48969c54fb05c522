package core

import (
	"github.com/shopspring/decimal"
)

// Summary is the aggregate shown above a payment history.
type Summary struct {
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// CategoryGroup holds the payments of one category in display order.
type CategoryGroup struct {
	Category Category  `json:"category"`
	Label    string    `json:"label"`
	Payments []Payment `json:"payments"`
	Summary  Summary   `json:"summary"`
}

// History is a payment list together with the summary computed from it.
// The two are always produced together so they cannot disagree.
type History struct {
	Payments []Payment `json:"payments"`
	Summary  Summary   `json:"summary"`
}

// ComputeSummary totals the payments. The average is zero for an empty list.
func ComputeSummary(payments []Payment) Summary {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	s := Summary{Total: total, Count: len(payments), Average: decimal.Zero}
	if s.Count > 0 {
		s.Average = total.Div(decimal.NewFromInt(int64(s.Count)))
	}
	return s
}

// NewHistory pairs a payment list with its summary.
func NewHistory(payments []Payment) History {
	if payments == nil {
		payments = []Payment{}
	}
	return History{Payments: payments, Summary: ComputeSummary(payments)}
}

// IsEmpty reports whether the history has no rows.
func (h History) IsEmpty() bool {
	return len(h.Payments) == 0
}

// GroupByCategory splits payments by category, keeping the order in which
// categories first appear and the order of rows inside each group.
func GroupByCategory(payments []Payment, c *Classifier) []CategoryGroup {
	if c == nil {
		c = DefaultClassifier()
	}
	var groups []CategoryGroup
	index := make(map[Category]int)
	for _, p := range payments {
		cat := c.Classify(p.Description)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat, Label: cat.Label()})
		}
		groups[i].Payments = append(groups[i].Payments, p)
	}
	for i := range groups {
		groups[i].Summary = ComputeSummary(groups[i].Payments)
	}
	return groups
}
