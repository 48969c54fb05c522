package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"halya/internal/core"
	"halya/internal/csvfile"
	"halya/internal/log"
	"halya/internal/services"
	"halya/internal/store/memory"
)

func newInvoicesCmd(a *app) *cobra.Command {
	var (
		paymentsPath  string
		templatesPath string
		residentsPath string
		outPath       string
	)
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Generate invoices from recorded payments or from fee templates",
		Long: `Generate invoices as CSV.

With --payments, one invoice is issued per recorded payment. With --templates,
every resident in --residents is billed every template fee.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (paymentsPath == "") == (templatesPath == "") {
				return fmt.Errorf("exactly one of --payments or --templates is required")
			}
			if templatesPath != "" && residentsPath == "" {
				residentsPath = filepath.Join(a.cfg.SeedDir, memory.ResidentsFile)
			}

			classifier, err := LoadClassifier(a.cfg)
			if err != nil {
				return err
			}
			proc := services.NewInvoiceProcessor(classifier, a.logger.WithComponent(log.ComponentInvoice))

			var (
				invoices []services.Invoice
				report   services.Report
			)
			if paymentsPath != "" {
				invoices, report, err = invoicesFromPayments(cmd.Context(), proc, paymentsPath)
			} else {
				invoices, report, err = invoicesFromTemplates(cmd.Context(), proc, templatesPath, residentsPath)
			}
			if err != nil {
				return err
			}

			if err := writeInvoices(cmd.OutOrStdout(), outPath, invoices); err != nil {
				return err
			}
			if outPath != "" {
				printReport(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paymentsPath, "payments", "", "payments CSV to invoice")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "fee templates CSV (description,amount,year)")
	cmd.Flags().StringVar(&residentsPath, "residents", "", "residents CSV billed by --templates (default: seed_dir/residents.csv)")
	cmd.Flags().StringVar(&outPath, "out", "", "write invoices to this file instead of stdout")
	return cmd
}

func invoicesFromPayments(ctx context.Context, proc *services.InvoiceProcessor, path string) ([]services.Invoice, services.Report, error) {
	rows, err := csvfile.ReadFile[core.PaymentRecord](path)
	if err != nil {
		return nil, services.Report{}, err
	}
	payments := make([]core.Payment, 0, len(rows))
	for i, row := range rows {
		p, err := row.Payment()
		if err != nil {
			return nil, services.Report{}, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		payments = append(payments, p)
	}
	invoices, report := proc.FromPayments(ctx, payments)
	return invoices, report, nil
}

func invoicesFromTemplates(ctx context.Context, proc *services.InvoiceProcessor, templatesPath, residentsPath string) ([]services.Invoice, services.Report, error) {
	templates, err := services.LoadTemplates(templatesPath)
	if err != nil {
		return nil, services.Report{}, err
	}
	rows, err := csvfile.ReadFile[core.ResidentRecord](residentsPath)
	if err != nil {
		return nil, services.Report{}, err
	}
	residents := make([]core.Resident, 0, len(rows))
	for _, row := range rows {
		residents = append(residents, row.Resident())
	}
	invoices, report := proc.FromTemplates(ctx, templates, residents)
	return invoices, report, nil
}

func writeInvoices(stdout io.Writer, path string, invoices []services.Invoice) error {
	if path == "" {
		return services.WriteInvoices(stdout, invoices)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := services.WriteInvoices(f, invoices); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(w io.Writer, r services.Report) {
	fmt.Fprintf(w, "Invoices: %d (skipped %d)\n", r.Total, r.Skipped)
	fmt.Fprintf(w, "  %s: %d\n", services.StatusPaid, r.ByStatus[services.StatusPaid])
	fmt.Fprintf(w, "  %s: %d\n", services.StatusPending, r.ByStatus[services.StatusPending])
	for _, y := range r.Years() {
		fmt.Fprintf(w, "  %d: %d\n", y, r.ByYear[y])
	}
}
