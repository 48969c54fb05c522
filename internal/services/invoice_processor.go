package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"halya/internal/core"
	"halya/internal/csvfile"
	"halya/internal/log"
)

// Report counts generated invoices.
type Report struct {
	Total         int
	Skipped       int
	ByStatus      map[InvoiceStatus]int
	ByYear        map[int]int
	ByDescription map[string]int
}

func newReport() Report {
	return Report{
		ByStatus:      make(map[InvoiceStatus]int),
		ByYear:        make(map[int]int),
		ByDescription: make(map[string]int),
	}
}

func (r *Report) add(inv Invoice) {
	r.Total++
	r.ByStatus[inv.Status]++
	r.ByYear[inv.Year]++
	r.ByDescription[inv.Description]++
}

// Years returns the years present in the report in ascending order.
func (r Report) Years() []int {
	years := make([]int, 0, len(r.ByYear))
	for y := range r.ByYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// InvoiceProcessor turns payments or fee templates into invoices.
type InvoiceProcessor struct {
	classifier *core.Classifier
	logger     *log.Logger
	now        func() time.Time
}

func NewInvoiceProcessor(classifier *core.Classifier, logger *log.Logger) *InvoiceProcessor {
	if classifier == nil {
		classifier = core.DefaultClassifier()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &InvoiceProcessor{
		classifier: classifier,
		logger:     logger.WithComponent(log.ComponentInvoice),
		now:        time.Now,
	}
}

// FromPayments issues one invoice per recorded payment. Payments without
// a year cannot be dated and are skipped.
func (p *InvoiceProcessor) FromPayments(ctx context.Context, payments []core.Payment) ([]Invoice, Report) {
	now := p.now()
	report := newReport()
	invoices := make([]Invoice, 0, len(payments))

	for _, pay := range payments {
		if pay.ResidentID == "" || pay.Description == "" || pay.Year == nil {
			report.Skipped++
			p.logger.DebugContext(ctx, "Skipping payment without year",
				log.FieldResidentID, pay.ResidentID, "description", pay.Description)
			continue
		}
		inv := p.build(int64(len(invoices)+1), pay.ResidentID, pay.Description, pay, *pay.Year, RecordedStatus{}, now)
		invoices = append(invoices, inv)
		report.add(inv)
	}

	p.logger.InfoContext(ctx, "Generated invoices from payments",
		log.FieldTotal, report.Total, "skipped", report.Skipped)
	return invoices, report
}

// FromTemplates bills every template to every resident, all pending.
func (p *InvoiceProcessor) FromTemplates(ctx context.Context, templates []Template, residents []core.Resident) ([]Invoice, Report) {
	now := p.now()
	report := newReport()
	invoices := make([]Invoice, 0, len(templates)*len(residents))

	for _, r := range residents {
		for _, t := range templates {
			pay := core.Payment{Amount: t.Amount}
			inv := p.build(int64(len(invoices)+1), r.ResidentID, t.Description, pay, t.Year, PendingStatus{}, now)
			invoices = append(invoices, inv)
			report.add(inv)
		}
	}

	p.logger.InfoContext(ctx, "Generated invoices for all residents",
		"templates", len(templates), "residents", len(residents), log.FieldTotal, report.Total)
	return invoices, report
}

func (p *InvoiceProcessor) build(id int64, residentID, description string, pay core.Payment, year int, status StatusStrategy, now time.Time) Invoice {
	category := p.classifier.Classify(description)
	parsed := ParseMonth(description)
	issued := InvoiceDate(year, parsed)
	return Invoice{
		ID:            id,
		ResidentID:    residentID,
		InvoiceNumber: InvoiceNumber(id, year),
		InvoiceDate:   issued,
		DueDate:       GetDueDateStrategy(category).DueDate(issued),
		Description:   description,
		Amount:        pay.Amount,
		Status:        status.Status(category, year, parsed, now),
		PaymentID:     pay.ID,
		Year:          year,
		Month:         int(issued.Month()),
		CreatedAt:     now,
	}
}

// WriteInvoices writes invoices as CSV.
func WriteInvoices(w io.Writer, invoices []Invoice) error {
	rows := make([]InvoiceRecord, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, NewInvoiceRecord(inv))
	}
	return csvfile.Write(w, rows)
}

// LoadTemplates reads fee templates (description, amount, year) from a CSV file.
func LoadTemplates(path string) ([]Template, error) {
	rows, err := csvfile.ReadFile[TemplateRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(rows))
	for i, row := range rows {
		t, err := row.Template()
		if err != nil {
			return nil, fmt.Errorf("template row %d: %w", i+2, err)
		}
		out = append(out, t)
	}
	return out, nil
}
