package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List downloaded products",
		Long:  "Scan the library directory and list every downloaded product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "library directory (default: download_root_dir setting)")

	return cmd
}

func runScan(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.GetDownloadRootDir()
	}

	orc := &orchestrator.Orchestrator{Hooks: orchestrator.Hooks{OnEvent: logEvent}}
	products, err := orc.ScanLibrary(cmd.Context(), dir)
	if err != nil {
		return err
	}

	if len(products) == 0 {
		logger.Info("No products found", logger.Fields{"dir": dir})
		return nil
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ID\tFILES\tSIZE\tMODIFIED")
	_, _ = fmt.Fprintln(tabWriter, "--\t-----\t----\t--------")
	for _, p := range products {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%d\t%d\t%s\n", p.ID, p.Files, p.Size, p.ModTime.Format(time.DateTime))
	}
	return tabWriter.Flush()
}
