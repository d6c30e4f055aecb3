package download

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
)

// PrepareTargetPath returns baseDir/productID as a fresh, empty directory.
// Anything already at that path is removed first; stale or partial downloads
// are never reused.
func PrepareTargetPath(productID, baseDir string) (string, error) {
	if err := validateProductID(productID); err != nil {
		return "", err
	}

	targetPath := filepath.Join(baseDir, productID)
	if err := fsutil.ResetDir(targetPath); err != nil {
		return "", errors.WrapKind(errors.ErrFilesystem, err, "failed to prepare target path %q", targetPath)
	}
	return targetPath, nil
}

// validateProductID makes sure the id names exactly one child of the base
// directory, so preparing or cleaning up a target never touches anything else.
func validateProductID(productID string) error {
	switch {
	case productID == "", productID == ".", productID == "..":
		return fmt.Errorf("%w: %q", errors.ErrInvalidProductID, productID)
	case strings.ContainsAny(productID, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", errors.ErrInvalidProductID, productID)
	}
	return nil
}
