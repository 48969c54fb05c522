package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/storage"
	"halya/internal/workbook"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		workbookPath string
		outDir       string
		sqlitePath   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Normalize the collection workbook into residents and payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workbookPath == "" {
				return fmt.Errorf("--workbook is required")
			}
			if outDir == "" {
				outDir = a.cfg.SeedDir
			}
			logger := a.logger.WithComponent(log.ComponentImport)

			res, err := workbook.ParseFile(workbookPath)
			if err != nil {
				return err
			}
			for _, name := range res.Ignored {
				logger.Debug("Skipping sheet", "sheet", name)
			}
			for _, s := range res.Sheets {
				logger.Info("Sheet read", "sheet", s.Name, "residents", s.Residents, "payments", s.Payments)
			}

			if err := res.WriteCSV(outDir); err != nil {
				return err
			}
			logger.Info("Wrote seed files", log.FieldPath, outDir,
				"residents", len(res.Residents), "payments", len(res.Payments))

			if sqlitePath != "" {
				repo, err := storage.NewSQLiteRepository(sqlitePath)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.ImportSnapshot(cmd.Context(), res.Residents, res.Payments); err != nil {
					return fmt.Errorf("import into %s: %w", sqlitePath, err)
				}
				logger.Info("Imported snapshot", log.FieldPath, sqlitePath, log.FieldOperation, log.OpImport)
			}

			out := cmd.OutOrStdout()
			sum := res.Summary()
			fmt.Fprintf(out, "Residents: %d (%d with payments)\n", len(res.Residents), res.ResidentsWithPayments())
			fmt.Fprintf(out, "Payments: %d totalling %s\n", sum.Count, core.FormatRinggit(sum.Total))
			for _, d := range res.ByDescription() {
				fmt.Fprintf(out, "  %-40s %4d  %s\n", d.Description, d.Count, core.FormatRinggit(d.Total))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workbookPath, "workbook", "", "path to the .xlsx collection workbook")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for residents.csv and payments.csv (default: seed_dir)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also load the snapshot into this SQLite mirror")
	return cmd
}
