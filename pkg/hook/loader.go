package hook

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/dlkeep/pkg/errors"
)

// HookFileExtensions lists the supported hook file extensions
var HookFileExtensions = map[string]bool{
	".tengo": true,
}

// LoadHookFile reads the script at path and registers it for hookType.
func LoadHookFile(manager HookManager, hookType HookType, path string) error {
	switch hookType {
	case PreDownload, PostDownload:
	default:
		return ErrUnsupportedHookType(string(hookType))
	}

	if ext := filepath.Ext(path); !HookFileExtensions[ext] {
		return fmt.Errorf("%w: %s: unsupported extension %q", errors.ErrHookLoad, path, ext)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapKind(errors.ErrHookLoad, err, "error reading hook file %s", path)
	}

	return manager.AddHook(Hook{
		Type:    hookType,
		Content: string(content),
	})
}

// HookTemplate generates a template for a hook script
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PreDownload:
		return `// Pre-download hook
// This script runs before the files of a product are downloaded
// Available variables:
// - productID: string - id of the product
// - targetDir: string - directory the files will be written to
// - files: array - manifest file names
// - totalSize: int - expected size of all files in bytes
// Set err to a message to abort the download.

// Example: refuse very large products
/*
if totalSize > 20 * 1024 * 1024 * 1024 {
    err = "product too large: " + productID
}
*/`

	case PostDownload:
		return `// Post-download hook
// This script runs after every file of a product was downloaded
// Available variables: same as pre-download hook
// Set err to a message to mark the download as failed.

// Example: print a summary
/*
fmt := import("fmt")
fmt.printf("%s: %d files in %s\n", productID, len(files), targetDir)
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
