package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"halya/internal/config"
	"halya/internal/log"
)

// annotationStore marks commands that open the configured store.
const annotationStore = "halya/store"

// storeCommand annotates cmd as one that opens the configured store.
func storeCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationStore] = "true"
	return cmd
}

func opensStore(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[annotationStore]
	return ok
}

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	configFile string
	envFile    string
	debug      bool

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCmd builds the halya command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "halya",
		Short: "Security guard fee collection lookup",
		Long: `halya serves the resident payment lookup for the Halya collection
and provides tools around the collection record.

Example:
  halya serve --port 8081
  halya residents --alley A
  halya payments --resident A001 --csv
  halya import --workbook collection.xlsx --out data`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadEnvFile(a.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := LoadAndValidateConfig(a.configFile, opensStore(cmd))
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = SetupLogger(cfg, cmd.ErrOrStderr(), a.debug)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./halya.yaml if present)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default is .env if present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		storeCommand(newServeCmd(a)),
		storeCommand(newAlleysCmd(a)),
		storeCommand(newResidentsCmd(a)),
		storeCommand(newPaymentsCmd(a)),
		newImportCmd(a),
		newInvoicesCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// Main runs Execute and exits non-zero on failure.
func Main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
