// Package services derives billing documents from the collection record.
package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"halya/internal/core"
)

// InvoiceStatus is the settlement state of an invoice.
type InvoiceStatus string

const (
	StatusPaid    InvoiceStatus = "PAID"
	StatusPending InvoiceStatus = "PENDING"
)

// Invoice is one billed fee of one resident.
type Invoice struct {
	ID            int64
	ResidentID    string
	InvoiceNumber string
	InvoiceDate   core.Date
	DueDate       core.Date
	Description   string
	Amount        decimal.Decimal
	Status        InvoiceStatus
	PaymentID     int64
	Year          int
	Month         int
	CreatedAt     time.Time
}

// InvoiceRecord is the flat CSV row of an invoice.
type InvoiceRecord struct {
	InvoiceID     int64  `csv:"invoice_id"`
	ResidentID    string `csv:"resident_id"`
	InvoiceNumber string `csv:"invoice_number"`
	InvoiceDate   string `csv:"invoice_date"`
	DueDate       string `csv:"due_date"`
	Description   string `csv:"description"`
	Amount        string `csv:"amount"`
	Status        string `csv:"status"`
	PaymentID     string `csv:"payment_id"`
	Year          int    `csv:"year"`
	Month         int    `csv:"month"`
	CreatedAt     string `csv:"created_at"`
	UpdatedAt     string `csv:"updated_at"`
}

const timestampLayout = "2006-01-02 15:04:05"

func NewInvoiceRecord(inv Invoice) InvoiceRecord {
	rec := InvoiceRecord{
		InvoiceID:     inv.ID,
		ResidentID:    inv.ResidentID,
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate.String(),
		DueDate:       inv.DueDate.String(),
		Description:   inv.Description,
		Amount:        inv.Amount.StringFixed(2),
		Status:        string(inv.Status),
		Year:          inv.Year,
		Month:         inv.Month,
		CreatedAt:     inv.CreatedAt.Format(timestampLayout),
		UpdatedAt:     inv.CreatedAt.Format(timestampLayout),
	}
	if inv.PaymentID != 0 {
		rec.PaymentID = strconv.FormatInt(inv.PaymentID, 10)
	}
	return rec
}

// Template is a fee billed to every resident.
type Template struct {
	Description string
	Amount      decimal.Decimal
	Year        int
}

// TemplateRecord is the CSV row of a fee template.
type TemplateRecord struct {
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Year        string `csv:"year"`
}

func (tr TemplateRecord) Template() (Template, error) {
	desc := strings.TrimSpace(tr.Description)
	if desc == "" {
		return Template{}, core.ErrEmptyDescription
	}
	amount, err := core.ParseAmount(tr.Amount)
	if err != nil {
		return Template{}, fmt.Errorf("amount %q: %w", tr.Amount, err)
	}
	year, err := strconv.Atoi(strings.TrimSpace(tr.Year))
	if err != nil {
		return Template{}, fmt.Errorf("year %q: %w", tr.Year, err)
	}
	return Template{Description: desc, Amount: amount, Year: year}, nil
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// ParseMonth returns the first month named in description (1-12), or 0.
func ParseMonth(description string) int {
	lower := strings.ToLower(description)
	for i, name := range monthNames {
		if strings.Contains(lower, name) {
			return i + 1
		}
	}
	return 0
}

// InvoiceDate is the first of the named month, or January 1st.
func InvoiceDate(year, month int) core.Date {
	if month < 1 || month > 12 {
		month = 1
	}
	return core.NewDate(year, month, 1)
}

// InvoiceNumber formats id as INV-YYYY-NNNNNN.
func InvoiceNumber(id int64, year int) string {
	return fmt.Sprintf("INV-%d-%06d", year, id)
}
