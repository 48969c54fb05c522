package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Resident is one household in the collection record set.
	Resident struct {
		ResidentID   string `json:"resident_id"`
		ResidentName string `json:"resident_name"`
		Alley        string `json:"alley"`
		HouseNumber  int    `json:"house_number"`
		SheetName    string `json:"sheet_name,omitempty"`
	}

	// Payment is a single recorded fee payment of a resident.
	Payment struct {
		ID          int64           `json:"id"`
		ResidentID  string          `json:"resident_id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Year        *int            `json:"year"`
		PaymentDate *Date           `json:"payment_date"`
		SheetName   string          `json:"sheet_name,omitempty"`
	}
)

var (
	ErrEmptyResidentID   = errors.New("empty resident id")
	ErrEmptyAlley        = errors.New("empty alley")
	ErrInvalidHouse      = errors.New("invalid house number")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrResidentNotFound  = errors.New("resident not found")
	ErrNoResidentChosen  = errors.New("no resident selected")
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts ISO dates and ISO timestamps as returned by the store.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDateFormat
	}
	if len(s) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Key identifies the resident for selection comparisons.
func (r Resident) Key() string {
	return r.ResidentID
}

// Label is the picker option text, e.g. "12 - Ahmad".
func (r Resident) Label() string {
	return fmt.Sprintf("%d - %s", r.HouseNumber, r.ResidentName)
}

func (r Resident) Validate() error {
	if strings.TrimSpace(r.ResidentID) == "" {
		return ErrEmptyResidentID
	}
	if strings.TrimSpace(r.Alley) == "" {
		return ErrEmptyAlley
	}
	if r.HouseNumber < 0 {
		return ErrInvalidHouse
	}
	return nil
}

// YearOrZero returns the payment year, 0 when the row has none.
func (p Payment) YearOrZero() int {
	if p.Year == nil {
		return 0
	}
	return *p.Year
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ResidentID) == "" {
		return ErrEmptyResidentID
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
