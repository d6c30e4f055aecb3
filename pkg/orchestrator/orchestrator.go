package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/download"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
	"github.com/cperrin88/dlkeep/pkg/hook"
	"github.com/cperrin88/dlkeep/pkg/model"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// RunCatalogSync runs fn while holding the catalog sync guard. If another
// sync is already running fn is not called and ErrSyncInProgress is returned.
func (o *Orchestrator) RunCatalogSync(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	release, ok := o.guard.TryAcquire()
	if !ok {
		return fmt.Errorf("%s: %w", name, errors.ErrSyncInProgress)
	}
	defer release()

	logger.Debug("Catalog sync started", logger.Fields{"operation": name})
	return fn(ctx)
}

// SyncInProgress reports whether a catalog sync operation is running.
func (o *Orchestrator) SyncInProgress() bool {
	return o.guard.Busy()
}

// DownloadProduct downloads every manifest file of a product into
// BaseDir/ProductID and then runs the optional post-processing steps.
// Only one download per product id may run at a time.
func (o *Orchestrator) DownloadProduct(ctx context.Context, req DownloadRequest, onProgress download.ProgressObserver) (*model.DownloadedProduct, error) {
	if o.DL == nil {
		return nil, fmt.Errorf("download manager is not configured")
	}
	if req.Extract && o.Extractor == nil {
		return nil, fmt.Errorf("archive extractor is not configured")
	}

	unlock, ok := o.lockProduct(req.ProductID)
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.ProductID, errors.ErrProductBusy)
	}
	defer unlock()

	product, err := o.downloadProduct(ctx, req, onProgress)
	if err != nil {
		emit(o.Hooks, Event{Phase: PhaseError, ID: req.ProductID, Msg: err.Error()})
		return nil, err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, ID: req.ProductID, Msg: product.Path})
	return product, nil
}

func (o *Orchestrator) downloadProduct(ctx context.Context, req DownloadRequest, onProgress download.ProgressObserver) (*model.DownloadedProduct, error) {
	targetDir := filepath.Join(req.BaseDir, req.ProductID)
	hctx := hook.HookContext{
		ProductID: req.ProductID,
		TargetDir: targetDir,
	}
	if req.Manifest != nil {
		for _, f := range req.Manifest.Files {
			hctx.Files = append(hctx.Files, f.FileName)
		}
		if total, err := req.Manifest.TotalSize(); err == nil {
			hctx.TotalSize = total
		}
	}

	emit(o.Hooks, Event{Phase: PhasePreparing, ID: req.ProductID, Msg: targetDir})
	if err := o.runHook(ctx, hook.PreDownload, hctx); err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: PhaseDownloading, ID: req.ProductID, Msg: fmt.Sprintf("%d files", len(hctx.Files))})
	if err := o.DL.DownloadProductFiles(ctx, req.ProductID, req.Manifest, req.BaseDir, onProgress); err != nil {
		return nil, err
	}

	if req.Extract {
		emit(o.Hooks, Event{Phase: PhaseExtracting, ID: req.ProductID})
		dirs, err := o.Extractor.ExtractDownloads(ctx, targetDir, hctx.Files)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", req.ProductID, err)
		}
		logger.Debug("Archives extracted", logger.Fields{"product": req.ProductID, "dirs": len(dirs)})
	}

	if err := o.runHook(ctx, hook.PostDownload, hctx); err != nil {
		return nil, err
	}

	return describeProduct(req.ProductID, targetDir)
}

func (o *Orchestrator) runHook(ctx context.Context, hookType hook.HookType, hctx hook.HookContext) error {
	if o.HookRunner == nil {
		return nil
	}
	emit(o.Hooks, Event{Phase: PhaseHook, ID: hctx.ProductID, Msg: string(hookType)})
	if err := o.HookRunner.Execute(ctx, hookType, hctx); err != nil {
		return fmt.Errorf("product %q: %s hook: %w", hctx.ProductID, hookType, err)
	}
	return nil
}

// lockProduct marks productID as being downloaded. ok is false when another
// download of the same product is in progress.
func (o *Orchestrator) lockProduct(productID string) (unlock func(), ok bool) {
	o.busyMu.Lock()
	defer o.busyMu.Unlock()

	if o.busy == nil {
		o.busy = make(map[string]struct{})
	}
	if _, taken := o.busy[productID]; taken {
		return nil, false
	}
	o.busy[productID] = struct{}{}

	return func() {
		o.busyMu.Lock()
		defer o.busyMu.Unlock()
		delete(o.busy, productID)
	}, true
}

// ScanLibrary lists the product directories below baseDir, sorted by id.
// It is a catalog sync operation and fails with ErrSyncInProgress while
// another one runs. A missing baseDir yields an empty list.
func (o *Orchestrator) ScanLibrary(ctx context.Context, baseDir string) ([]model.DownloadedProduct, error) {
	var products []model.DownloadedProduct

	err := o.RunCatalogSync(ctx, "scan library", func(ctx context.Context) error {
		emit(o.Hooks, Event{Phase: PhaseScanning, Msg: baseDir})

		entries, err := os.ReadDir(baseDir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.WrapKind(errors.ErrFilesystem, err, "failed to read library %s", baseDir)
		}

		// os.ReadDir returns entries sorted by name.
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !entry.IsDir() {
				continue
			}
			product, err := describeProduct(entry.Name(), filepath.Join(baseDir, entry.Name()))
			if err != nil {
				return err
			}
			products = append(products, *product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: PhaseDone, Msg: fmt.Sprintf("%d products", len(products))})
	return products, nil
}

func describeProduct(id, dir string) (*model.DownloadedProduct, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrFilesystem, err, "failed to stat %s", dir)
	}
	files, size, err := fsutil.DirUsage(dir)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrFilesystem, err, "failed to measure %s", dir)
	}
	return &model.DownloadedProduct{
		ID:      id,
		Path:    dir,
		Files:   files,
		Size:    size,
		ModTime: info.ModTime(),
	}, nil
}
