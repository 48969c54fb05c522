package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ResidentRecord is the flat CSV row of a resident.
type ResidentRecord struct {
	ResidentID   string `csv:"resident_id"`
	Alley        string `csv:"alley"`
	HouseNumber  int    `csv:"house_number"`
	ResidentName string `csv:"resident_name"`
	SheetName    string `csv:"sheet_name"`
}

// PaymentRecord is the flat CSV row of a payment. Optional columns are
// kept as strings so empty cells survive a round trip.
type PaymentRecord struct {
	ID          string `csv:"id"`
	ResidentID  string `csv:"resident_id"`
	PaymentDate string `csv:"payment_date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Year        string `csv:"year"`
	SheetName   string `csv:"sheet_name"`
}

func NewResidentRecord(r Resident) ResidentRecord {
	return ResidentRecord{
		ResidentID:   r.ResidentID,
		Alley:        r.Alley,
		HouseNumber:  r.HouseNumber,
		ResidentName: r.ResidentName,
		SheetName:    r.SheetName,
	}
}

func (rr ResidentRecord) Resident() Resident {
	return Resident{
		ResidentID:   strings.TrimSpace(rr.ResidentID),
		ResidentName: strings.TrimSpace(rr.ResidentName),
		Alley:        strings.TrimSpace(rr.Alley),
		HouseNumber:  rr.HouseNumber,
		SheetName:    rr.SheetName,
	}
}

func NewPaymentRecord(p Payment) PaymentRecord {
	rec := PaymentRecord{
		ResidentID:  p.ResidentID,
		Description: p.Description,
		Amount:      p.Amount.StringFixed(2),
		SheetName:   p.SheetName,
	}
	if p.ID != 0 {
		rec.ID = strconv.FormatInt(p.ID, 10)
	}
	if p.Year != nil {
		rec.Year = strconv.Itoa(*p.Year)
	}
	if p.PaymentDate != nil && !p.PaymentDate.IsZero() {
		rec.PaymentDate = p.PaymentDate.String()
	}
	return rec
}

// Payment converts the row, reporting which column was malformed.
func (pr PaymentRecord) Payment() (Payment, error) {
	p := Payment{
		ResidentID:  strings.TrimSpace(pr.ResidentID),
		Description: strings.TrimSpace(pr.Description),
		SheetName:   pr.SheetName,
	}
	if s := strings.TrimSpace(pr.ID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Payment{}, fmt.Errorf("id %q: %w", s, err)
		}
		p.ID = id
	}
	amount, err := ParseAmount(pr.Amount)
	if err != nil {
		return Payment{}, fmt.Errorf("amount %q: %w", pr.Amount, err)
	}
	p.Amount = amount
	if s := strings.TrimSpace(pr.Year); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return Payment{}, fmt.Errorf("year %q: %w", s, err)
		}
		p.Year = &y
	}
	if s := strings.TrimSpace(pr.PaymentDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Payment{}, fmt.Errorf("payment_date: %w", err)
		}
		p.PaymentDate = &d
	}
	return p, nil
}
