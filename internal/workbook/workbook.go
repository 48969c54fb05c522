// Package workbook converts the collection workbook into the resident and
// payment rows served by the stores.
package workbook

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"halya/internal/core"
	"halya/internal/csvfile"
	"halya/internal/store/memory"
)

// Known sheet names.
const (
	SheetFeeHalya = "Fee Halya 1"
	SheetSticker  = "Sticker"
)

// firstDataRow is the zero-based index of the first resident row (row 7).
const firstDataRow = 6

const (
	colAlley = iota
	colHouse
	colName
	colMembershipYear
	colMembershipFee
)

// feeColumn maps one workbook column to a payment description.
type feeColumn struct {
	index       int
	description string
	year        int
}

var commonFees = []feeColumn{
	{5, "Annual Fee 2023", 2023},
	{6, "Annual Fee 2024", 2024},
	{7, "Annual Fee 2025", 2025},
	{8, "Guard Fee - Raya", 2025},
	{9, "Guard Fee - April 2025", 2025},
}

// Only the main collection sheet carries the monthly guard fees and the
// excess brought forward.
var feeHalyaFees = []feeColumn{
	{10, "Guard Fee - May 2025", 2025},
	{11, "Guard Fee - June 2025", 2025},
	{12, "Guard Fee - July 2025", 2025},
	{13, "Guard Fee - August 2025", 2025},
	{14, "Excess Payment Brought Forward", 2025},
}

// SheetStats counts what was read from one sheet.
type SheetStats struct {
	Name      string
	Residents int
	Payments  int
}

// DescriptionTotal aggregates the payments sharing a description.
type DescriptionTotal struct {
	Description string
	Count       int
	Total       decimal.Decimal
}

// Result is the normalized content of a workbook.
type Result struct {
	Residents []core.Resident
	Payments  []core.Payment
	Sheets    []SheetStats
	// Ignored lists sheets that are not part of the collection record.
	Ignored []string
}

// Parse reads every known sheet of f. Residents appearing on more than one
// sheet keep their first row; all of their payments are kept.
func Parse(f *excelize.File) (*Result, error) {
	res := &Result{}
	seen := make(map[string]struct{})

	for _, name := range f.GetSheetList() {
		var extra []feeColumn
		switch name {
		case SheetFeeHalya:
			extra = feeHalyaFees
		case SheetSticker:
		default:
			res.Ignored = append(res.Ignored, name)
			continue
		}

		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}

		stats := SheetStats{Name: name}
		for i := firstDataRow; i < len(rows); i++ {
			resident, ok := parseResident(rows[i], name)
			if !ok {
				continue
			}
			stats.Residents++
			if _, dup := seen[resident.ResidentID]; !dup {
				seen[resident.ResidentID] = struct{}{}
				res.Residents = append(res.Residents, resident)
			}
			payments := parsePayments(rows[i], resident.ResidentID, name, extra)
			stats.Payments += len(payments)
			res.Payments = append(res.Payments, payments...)
		}
		res.Sheets = append(res.Sheets, stats)
	}

	for i := range res.Payments {
		res.Payments[i].ID = int64(i + 1)
	}
	return res, nil
}

// ParseFile opens and parses the workbook at path.
func ParseFile(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseReader parses a workbook streamed from r.
func ParseReader(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func parseResident(row []string, sheet string) (core.Resident, bool) {
	alley := cell(row, colAlley)
	houseText := cell(row, colHouse)
	if alley == "" && houseText == "" {
		return core.Resident{}, false
	}
	house, ok := parseInt(houseText)
	name := cell(row, colName)
	if !ok || name == "" || alley == "" {
		return core.Resident{}, false
	}
	return core.Resident{
		ResidentID:   ResidentID(alley, house),
		Alley:        alley,
		HouseNumber:  house,
		ResidentName: name,
		SheetName:    sheet,
	}, true
}

// ResidentID builds the identifier from alley and house, e.g. "B023".
func ResidentID(alley string, house int) string {
	return fmt.Sprintf("%s%03d", alley, house)
}

func parsePayments(row []string, residentID, sheet string, extra []feeColumn) []core.Payment {
	var out []core.Payment
	add := func(description string, amount decimal.Decimal, year *int) {
		out = append(out, core.Payment{
			ResidentID:  residentID,
			Description: description,
			Amount:      amount,
			Year:        year,
			SheetName:   sheet,
		})
	}

	if amount, ok := positiveAmount(cell(row, colMembershipFee)); ok {
		var year *int
		if y, ok := parseInt(cell(row, colMembershipYear)); ok {
			year = core.IntPtr(y)
		}
		add("Membership Fee", amount, year)
	}

	for _, cols := range [][]feeColumn{commonFees, extra} {
		for _, fc := range cols {
			if amount, ok := positiveAmount(cell(row, fc.index)); ok {
				add(fc.description, amount, core.IntPtr(fc.year))
			}
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func positiveAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := core.ParseAmount(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Summary returns collection totals over the parsed payments.
func (r *Result) Summary() core.Summary {
	return core.ComputeSummary(r.Payments)
}

// ResidentsWithPayments counts residents that have at least one payment.
func (r *Result) ResidentsWithPayments() int {
	ids := make(map[string]struct{})
	for _, p := range r.Payments {
		ids[p.ResidentID] = struct{}{}
	}
	return len(ids)
}

// ByDescription totals payments per description, sorted by description.
func (r *Result) ByDescription() []DescriptionTotal {
	index := make(map[string]int)
	var out []DescriptionTotal
	for _, p := range r.Payments {
		i, ok := index[p.Description]
		if !ok {
			i = len(out)
			index[p.Description] = i
			out = append(out, DescriptionTotal{Description: p.Description, Total: decimal.Zero})
		}
		out[i].Count++
		out[i].Total = out[i].Total.Add(p.Amount)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out
}

// WriteCSV writes residents.csv and payments.csv into dir, the layout the
// memory store loads.
func (r *Result) WriteCSV(dir string) error {
	residents := make([]core.ResidentRecord, 0, len(r.Residents))
	for _, res := range r.Residents {
		residents = append(residents, core.NewResidentRecord(res))
	}
	payments := make([]core.PaymentRecord, 0, len(r.Payments))
	for _, p := range r.Payments {
		payments = append(payments, core.NewPaymentRecord(p))
	}

	if err := csvfile.WriteFile(filepath.Join(dir, memory.ResidentsFile), residents); err != nil {
		return fmt.Errorf("write residents: %w", err)
	}
	if err := csvfile.WriteFile(filepath.Join(dir, memory.PaymentsFile), payments); err != nil {
		return fmt.Errorf("write payments: %w", err)
	}
	return nil
}
