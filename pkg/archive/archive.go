// Package archive extracts downloaded product archives next to the files they
// came from.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
	"github.com/mholt/archives"
)

// Manager handles archive detection and extraction.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// IsArchive reports whether the file at path is an archive format that can be
// extracted. Plain compressed single files are not archives.
func (am *Manager) IsArchive(ctx context.Context, path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, errors.WrapKind(errors.ErrFilesystem, err, "failed to open %s", path)
	}
	defer func() { _ = file.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(path), file)
	if errors.Is(err, archives.NoMatch) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to identify %s: %w", path, err)
	}
	_, ok := format.(archives.Extractor)
	return ok, nil
}

// ExtractAll extracts all files from an archive to the specified destination directory.
// Entries that would land outside destDir fail the extraction with ErrUnsafeArchiveEntry.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to open archive file")
	}
	defer func() { _ = file.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return fmt.Errorf("failed to identify archive %s: %w", archivePath, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%s is not an extractable archive", archivePath)
	}
	// Identify consumed part of the stream.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to rewind archive file")
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to create destination directory")
	}

	return extractor.Extract(ctx, file, func(_ context.Context, f archives.FileInfo) error {
		return am.extractEntry(f, destDir)
	})
}

// ExtractDownloads extracts every archive among files (names relative to
// targetDir) into targetDir/<stem> and returns the created directories.
// Files that are not archives are skipped.
func (am *Manager) ExtractDownloads(ctx context.Context, targetDir string, files []string) ([]string, error) {
	var extracted []string
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return extracted, err
		}

		path := filepath.Join(targetDir, name)
		ok, err := am.IsArchive(ctx, path)
		if err != nil {
			return extracted, err
		}
		if !ok {
			logger.Debug("Skipping non-archive file", logger.Fields{"file": name})
			continue
		}

		destDir := filepath.Join(targetDir, Stem(name))
		logger.Debug("Extracting archive", logger.Fields{"file": name, "dest": destDir})
		if err := am.ExtractAll(ctx, path, destDir); err != nil {
			return extracted, errors.Wrapf(err, "failed to extract %s", name)
		}
		extracted = append(extracted, destDir)
	}
	return extracted, nil
}

// Stem returns name without its archive extension, keeping ".tar" pairs together.
func Stem(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.EqualFold(filepath.Ext(stem), ".tar") {
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	if stem == "" {
		return name + ".d"
	}
	return stem
}

// extractEntry processes a single archive entry and writes it to destDir.
func (am *Manager) extractEntry(f archives.FileInfo, destDir string) error {
	targetPath, err := safeJoin(destDir, f.NameInArchive)
	if err != nil {
		return err
	}
	if targetPath == filepath.Clean(destDir) {
		return nil
	}
	if err := refuseSymlinkedParents(destDir, targetPath, f.NameInArchive); err != nil {
		return err
	}

	if f.IsDir() {
		return os.MkdirAll(targetPath, fsutil.DirModeDefault)
	}

	if f.Mode()&os.ModeSymlink != 0 {
		return am.writeSymlink(f, targetPath)
	}

	if !f.Mode().IsRegular() {
		logger.Debug("Skipping special archive entry", logger.Fields{"entry": f.NameInArchive})
		return nil
	}
	return am.writeRegularFile(f, targetPath)
}

// safeJoin resolves an entry name below destDir and rejects names that escape it.
func safeJoin(destDir, name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(name, "/"))
	if rel == "" {
		return filepath.Clean(destDir), nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", errors.ErrUnsafeArchiveEntry, name)
	}
	return filepath.Join(destDir, rel), nil
}

// refuseSymlinkedParents fails when an existing directory between destDir and
// targetPath is a symlink. Entries are never written through links, including
// links created by earlier entries of the same archive.
func refuseSymlinkedParents(destDir, targetPath, name string) error {
	rel, err := filepath.Rel(destDir, filepath.Dir(targetPath))
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errors.ErrUnsafeArchiveEntry, name, err)
	}
	if rel == "." {
		return nil
	}

	current := filepath.Clean(destDir)
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.WrapKind(errors.ErrFilesystem, err, "failed to inspect %s", current)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q is below symlink %q", errors.ErrUnsafeArchiveEntry, name, current)
		}
	}
	return nil
}

// writeSymlink creates a symlink at targetPath. Link targets must be relative
// and free of ".." so every link points below its own directory.
func (am *Manager) writeSymlink(f archives.FileInfo, targetPath string) error {
	link := f.LinkTarget
	if link == "" || filepath.IsAbs(link) || strings.HasPrefix(link, "/") {
		return fmt.Errorf("%w: %q links to %q", errors.ErrUnsafeArchiveEntry, f.NameInArchive, link)
	}
	for _, part := range strings.FieldsFunc(link, isPathSeparator) {
		if part == ".." {
			return fmt.Errorf("%w: %q links outside its directory (%q)", errors.ErrUnsafeArchiveEntry, f.NameInArchive, link)
		}
	}

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", f.NameInArchive, err)
	}

	// Remove existing file/symlink if it exists
	_ = os.Remove(targetPath)

	return os.Symlink(link, targetPath)
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// writeRegularFile writes a regular file from the archive entry to targetPath and preserves metadata.
func (am *Manager) writeRegularFile(f archives.FileInfo, targetPath string) error {
	srcFile, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", f.NameInArchive, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", f.NameInArchive, err)
	}

	// A link left by an earlier entry is replaced, not written through.
	if info, err := os.Lstat(targetPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(targetPath); err != nil {
			return errors.WrapKind(errors.ErrFilesystem, err, "failed to replace symlink %s", targetPath)
		}
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}
	dstFile, err := fsutil.CreateFilePerm(targetPath, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", f.NameInArchive, err)
	}

	if err := os.Chtimes(targetPath, f.ModTime(), f.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
	}
	return nil
}
