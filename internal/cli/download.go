package cli

import (
	"fmt"
	"time"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/model"
	"github.com/cperrin88/dlkeep/pkg/orchestrator"
	"github.com/spf13/cobra"
)

type downloadOptions struct {
	manifestPath string
	dir          string
	extract      bool
	cookies      []string
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var opts downloadOptions

	cmd := &cobra.Command{
		Use:   "download PRODUCT_ID",
		Short: "Download all files of a product",
		Long: `Download every file listed in the product manifest into a directory named
after the product inside the library. Interrupted transfers resume where they
stopped; if any file fails the whole product directory is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], opts, cmd.Flags().Changed("extract"))
		},
	}

	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "manifest file listing the product files")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "library directory (default: download_root_dir setting)")
	cmd.Flags().BoolVar(&opts.extract, "extract", false, "extract downloaded archives (default: extract setting)")
	cmd.Flags().StringArrayVar(&opts.cookies, "cookie", nil, "session cookie as NAME=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runDownload(cmd *cobra.Command, productID string, opts downloadOptions, extractSet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cookies, err := parseCookies(opts.cookies)
	if err != nil {
		return err
	}

	manifest, err := model.LoadManifestFile(opts.manifestPath)
	if err != nil {
		return err
	}

	baseDir := opts.dir
	if baseDir == "" {
		baseDir = cfg.GetDownloadRootDir()
	}
	extract := cfg.Settings.Extract
	if extractSet {
		extract = opts.extract
	}

	orc, err := newOrchestrator(cfg, cookies)
	if err != nil {
		return err
	}

	logger.Info("Downloading product", logger.Fields{
		"product": productID,
		"files":   len(manifest.Files),
		"dir":     baseDir,
	})

	bar := newProgressBar(cmd.ErrOrStderr(), productID)
	start := time.Now()
	product, err := orc.DownloadProduct(cmd.Context(), orchestrator.DownloadRequest{
		ProductID: productID,
		Manifest:  manifest,
		BaseDir:   baseDir,
		Extract:   extract,
	}, bar.Update)
	bar.Close(err == nil)
	if err != nil {
		return err
	}

	logger.Success("Product downloaded", logger.Fields{
		"product":  product.ID,
		"path":     product.Path,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", product.Path)
	return nil
}
