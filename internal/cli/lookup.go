package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"halya/internal/backend"
	"halya/internal/core"
	"halya/internal/csvfile"
	"halya/internal/log"
	"halya/internal/store"
)

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, a *app, fn func(ctx context.Context, st store.Store) error) error {
	be, err := OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func(be *backend.BackendResult) {
		if err := be.Close(); err != nil {
			a.logger.Warn("Failed to close store", log.FieldError, err.Error())
		}
	}(be)

	if a.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
	}
	return fn(ctx, be.Store)
}

func newAlleysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alleys",
		Short: "List the alleys that have residents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), a, func(ctx context.Context, st store.Store) error {
				values, err := st.AlleyValues(ctx)
				if err != nil {
					return fmt.Errorf("load alleys: %w", err)
				}
				for _, alley := range core.DistinctAlleys(values) {
					fmt.Fprintln(cmd.OutOrStdout(), alley)
				}
				return nil
			})
		},
	}
}

func newResidentsCmd(a *app) *cobra.Command {
	var alley string
	cmd := &cobra.Command{
		Use:   "residents",
		Short: "List the residents of an alley by house number",
		RunE: func(cmd *cobra.Command, args []string) error {
			alley = strings.TrimSpace(alley)
			if alley == "" {
				return fmt.Errorf("--alley is required")
			}
			return withStore(cmd.Context(), a, func(ctx context.Context, st store.Store) error {
				residents, err := st.ResidentsByAlley(ctx, alley)
				if err != nil {
					return fmt.Errorf("load residents: %w", err)
				}
				if len(residents) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No residents in alley %s\n", alley)
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tHOUSE\tNAME")
				for _, r := range residents {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.ResidentID, r.HouseNumber, r.ResidentName)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&alley, "alley", "", "alley to list")
	return cmd
}

func newPaymentsCmd(a *app) *cobra.Command {
	var (
		residentID string
		asCSV      bool
	)
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Show the payment history of a resident",
		RunE: func(cmd *cobra.Command, args []string) error {
			residentID = strings.TrimSpace(residentID)
			if residentID == "" {
				return fmt.Errorf("--resident is required")
			}
			classifier, err := LoadClassifier(a.cfg)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), a, func(ctx context.Context, st store.Store) error {
				resident, err := st.Resident(ctx, residentID)
				if err != nil {
					return fmt.Errorf("load resident %s: %w", residentID, err)
				}
				payments, err := st.PaymentsByResident(ctx, residentID)
				if err != nil {
					return fmt.Errorf("load payments: %w", err)
				}
				history := core.NewHistory(payments)
				if asCSV {
					rows := make([]core.PaymentRecord, 0, len(history.Payments))
					for _, p := range history.Payments {
						rows = append(rows, core.NewPaymentRecord(p))
					}
					return csvfile.Write(cmd.OutOrStdout(), rows)
				}
				return printHistory(cmd.OutOrStdout(), resident, history, classifier)
			})
		},
	}
	cmd.Flags().StringVar(&residentID, "resident", "", "resident id, e.g. A001")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printHistory(w io.Writer, r core.Resident, h core.History, c *core.Classifier) error {
	fmt.Fprintf(w, "%s  %s\n", r.Label(), r.ResidentName)
	fmt.Fprintf(w, "Total Paid: %s  Total Payments: %d  Average Payment: %s\n\n",
		core.FormatRinggit(h.Summary.Total), h.Summary.Count, core.FormatRinggit(h.Summary.Average))

	if h.IsEmpty() {
		fmt.Fprintln(w, "No payments found for this resident")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tDESCRIPTION\tCATEGORY\tAMOUNT")
	for _, p := range h.Payments {
		year := "-"
		if p.Year != nil {
			year = fmt.Sprint(*p.Year)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", year, p.Description, c.Classify(p.Description).Label(), core.FormatRinggit(p.Amount))
	}
	return tw.Flush()
}
