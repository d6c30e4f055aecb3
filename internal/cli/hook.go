package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
	"github.com/cperrin88/dlkeep/pkg/hook"
	"github.com/spf13/cobra"
)

// NewHookCmd creates the hook command with subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage download hook scripts",
		Long:  "Create tengo scripts that run before or after a product download",
	}

	cmd.AddCommand(newHookInitCmd())

	return cmd
}

func newHookInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:       "init TYPE",
		Short:     "Write a hook script template",
		Long:      "Print a template for a pre-download or post-download hook, or write it to --output",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(hook.PreDownload), string(hook.PostDownload)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookInit(cmd, hook.HookType(args[0]), output, force)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the template to (must end in .tengo)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func runHookInit(cmd *cobra.Command, hookType hook.HookType, output string, force bool) error {
	switch hookType {
	case hook.PreDownload, hook.PostDownload:
	default:
		return hook.ErrUnsupportedHookType(string(hookType))
	}

	template := hook.HookTemplate(hookType) + "\n"
	if output == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), template)
		return nil
	}

	// Loading rejects other extensions, so refuse to write them.
	if ext := filepath.Ext(output); !hook.HookFileExtensions[ext] {
		return fmt.Errorf("%s: unsupported hook file extension %q", output, ext)
	}
	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("%s: %w (use --force to overwrite)", output, errors.ErrFileAlreadyExists)
	}
	if err := os.WriteFile(output, []byte(template), fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write hook template: %w", err)
	}

	logger.Success("Hook template created", logger.Fields{"type": string(hookType), "path": output})
	return nil
}
