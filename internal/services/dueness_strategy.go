// This file implements the Strategy Pattern for invoice due dates and
// statuses. Each fee category has its own due date rule; the status rule
// depends on where the invoices come from.

package services

import (
	"time"

	"halya/internal/core"
)

// DueDateStrategy computes when an invoice issued on invoiceDate is due.
type DueDateStrategy interface {
	DueDate(invoiceDate core.Date) core.Date
}

// EndOfMonthDue makes an invoice due on the last day of its month.
// December invoices are due Dec 31 of the same year: a guard fee for a
// month is settled within that month, and rolling December into January
// would put it on the next year's books.
type EndOfMonthDue struct{}

func (EndOfMonthDue) DueDate(invoiceDate core.Date) core.Date {
	last := time.Date(invoiceDate.Year(), invoiceDate.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return core.Date{Time: last}
}

// NetDaysDue makes an invoice due a fixed number of days after issue.
type NetDaysDue struct {
	Days int
}

func (n NetDaysDue) DueDate(invoiceDate core.Date) core.Date {
	return core.Date{Time: invoiceDate.AddDate(0, 0, n.Days)}
}

var defaultDueDate DueDateStrategy = NetDaysDue{Days: 30}

// dueDateStrategies maps fee categories to their due date rule. Categories
// not listed use defaultDueDate.
var dueDateStrategies = map[core.Category]DueDateStrategy{
	core.CategoryGuard: EndOfMonthDue{},
}

// GetDueDateStrategy returns the due date rule for a category.
func GetDueDateStrategy(c core.Category) DueDateStrategy {
	if s, ok := dueDateStrategies[c]; ok {
		return s
	}
	return defaultDueDate
}

// RegisterDueDateStrategy overrides the due date rule for a category.
func RegisterDueDateStrategy(c core.Category, s DueDateStrategy) {
	dueDateStrategies[c] = s
}

// StatusStrategy decides whether an invoice counts as settled on today.
type StatusStrategy interface {
	Status(category core.Category, year, month int, today time.Time) InvoiceStatus
}

// RecordedStatus is used for invoices rebuilt from recorded payments:
// past years are paid, and so are past monthly guard fees of this year.
// Everything else is pending.
type RecordedStatus struct{}

func (RecordedStatus) Status(category core.Category, year, month int, today time.Time) InvoiceStatus {
	switch {
	case year < today.Year():
		return StatusPaid
	case year > today.Year():
		return StatusPending
	case category == core.CategoryGuard && month > 0 && month < int(today.Month()):
		return StatusPaid
	default:
		return StatusPending
	}
}

// PendingStatus marks every invoice pending. Used when billing templates
// to all residents, where payment is tracked separately.
type PendingStatus struct{}

func (PendingStatus) Status(core.Category, int, int, time.Time) InvoiceStatus {
	return StatusPending
}
