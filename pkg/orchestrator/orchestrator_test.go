package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cperrin88/dlkeep/pkg/download"
	dlmocks "github.com/cperrin88/dlkeep/pkg/download/mocks"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/hook"
	"github.com/cperrin88/dlkeep/pkg/model"
	ocmocks "github.com/cperrin88/dlkeep/pkg/orchestrator/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testManifest() *model.Manifest {
	return &model.Manifest{Files: []model.ManifestEntry{
		{FileName: "a.zip", FileSize: "3"},
		{FileName: "b.txt", FileSize: "2"},
	}}
}

// writeFiles fakes a successful batch by creating the manifest files.
func writeFiles(_ context.Context, productID string, manifest *model.Manifest, baseDir string, onProgress download.ProgressObserver) error {
	dir := filepath.Join(baseDir, productID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	total, _ := manifest.TotalSize()
	var received uint64
	for _, f := range manifest.Files {
		size, _ := f.Size()
		if err := os.WriteFile(filepath.Join(dir, f.FileName), make([]byte, size), 0o644); err != nil {
			return err
		}
		received += size
		if onProgress != nil {
			onProgress(received, total)
		}
	}
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) hooks() Hooks {
	return Hooks{OnEvent: func(e Event) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, e)
	}}
}

func (l *eventLog) phases() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Phase)
	}
	return out
}

func TestDownloadProduct_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	base := t.TempDir()
	manifest := testManifest()

	dl.EXPECT().
		DownloadProductFiles(gomock.Any(), "RJ1", manifest, base, gomock.Any()).
		DoAndReturn(writeFiles).
		Times(1)

	events := &eventLog{}
	orch := &Orchestrator{DL: dl, Hooks: events.hooks()}

	var last [2]uint64
	product, err := orch.DownloadProduct(context.Background(), DownloadRequest{
		ProductID: "RJ1",
		Manifest:  manifest,
		BaseDir:   base,
	}, func(received, total uint64) { last = [2]uint64{received, total} })

	require.NoError(t, err)
	assert.Equal(t, "RJ1", product.ID)
	assert.Equal(t, filepath.Join(base, "RJ1"), product.Path)
	assert.Equal(t, 2, product.Files)
	assert.Equal(t, uint64(5), product.Size)
	assert.Equal(t, [2]uint64{5, 5}, last)
	assert.Equal(t, []string{PhasePreparing, PhaseDownloading, PhaseDone}, events.phases())
}

func TestDownloadProduct_DownloadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	hooks := ocmocks.NewMockHookRunner(ctrl)
	base := t.TempDir()

	failure := fmt.Errorf("batch: %w", errors.ErrRetriesExhausted)
	hooks.EXPECT().Execute(gomock.Any(), hook.PreDownload, gomock.Any()).Return(nil)
	dl.EXPECT().DownloadProductFiles(gomock.Any(), "RJ1", gomock.Any(), base, gomock.Any()).Return(failure)

	events := &eventLog{}
	orch := &Orchestrator{DL: dl, HookRunner: hooks, Hooks: events.hooks()}

	product, err := orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ1", Manifest: testManifest(), BaseDir: base}, nil)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, errors.ErrRetriesExhausted)
	phases := events.phases()
	assert.Equal(t, PhaseError, phases[len(phases)-1])
	assert.NotContains(t, phases, PhaseDone)
}

func TestDownloadProduct_ExtractAndHooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	extractor := ocmocks.NewMockExtractor(ctrl)
	hooks := ocmocks.NewMockHookRunner(ctrl)
	base := t.TempDir()
	target := filepath.Join(base, "RJ2")

	wantCtx := hook.HookContext{
		ProductID: "RJ2",
		TargetDir: target,
		Files:     []string{"a.zip", "b.txt"},
		TotalSize: 5,
	}

	gomock.InOrder(
		hooks.EXPECT().Execute(gomock.Any(), hook.PreDownload, wantCtx).Return(nil),
		dl.EXPECT().DownloadProductFiles(gomock.Any(), "RJ2", gomock.Any(), base, gomock.Any()).DoAndReturn(writeFiles),
		extractor.EXPECT().ExtractDownloads(gomock.Any(), target, []string{"a.zip", "b.txt"}).Return([]string{filepath.Join(target, "a")}, nil),
		hooks.EXPECT().Execute(gomock.Any(), hook.PostDownload, wantCtx).Return(nil),
	)

	events := &eventLog{}
	orch := &Orchestrator{DL: dl, Extractor: extractor, HookRunner: hooks, Hooks: events.hooks()}

	_, err := orch.DownloadProduct(context.Background(), DownloadRequest{
		ProductID: "RJ2",
		Manifest:  testManifest(),
		BaseDir:   base,
		Extract:   true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		PhasePreparing, PhaseHook, PhaseDownloading, PhaseExtracting, PhaseHook, PhaseDone,
	}, events.phases())
}

func TestDownloadProduct_ExtractionFailureKeepsFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	extractor := ocmocks.NewMockExtractor(ctrl)
	base := t.TempDir()

	dl.EXPECT().DownloadProductFiles(gomock.Any(), "RJ3", gomock.Any(), base, gomock.Any()).DoAndReturn(writeFiles)
	extractor.EXPECT().ExtractDownloads(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.ErrUnsafeArchiveEntry)

	orch := &Orchestrator{DL: dl, Extractor: extractor}
	_, err := orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ3", Manifest: testManifest(), BaseDir: base, Extract: true}, nil)

	assert.ErrorIs(t, err, errors.ErrUnsafeArchiveEntry)
	assert.FileExists(t, filepath.Join(base, "RJ3", "a.zip"))
}

func TestDownloadProduct_PreHookAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	hooks := ocmocks.NewMockHookRunner(ctrl)

	hooks.EXPECT().Execute(gomock.Any(), hook.PreDownload, gomock.Any()).Return(errors.ErrHookScript)

	orch := &Orchestrator{DL: dl, HookRunner: hooks}
	_, err := orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ4", Manifest: testManifest(), BaseDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, errors.ErrHookScript)
}

func TestDownloadProduct_SameProductIsSerialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := dlmocks.NewMockManager(ctrl)
	base := t.TempDir()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	dl.EXPECT().
		DownloadProductFiles(gomock.Any(), "RJ5", gomock.Any(), base, gomock.Any()).
		DoAndReturn(func(ctx context.Context, id string, m *model.Manifest, dir string, p download.ProgressObserver) error {
			close(entered)
			<-proceed
			return writeFiles(ctx, id, m, dir, p)
		}).
		Times(1)
	dl.EXPECT().
		DownloadProductFiles(gomock.Any(), "RJ6", gomock.Any(), base, gomock.Any()).
		DoAndReturn(writeFiles).
		Times(1)

	orch := &Orchestrator{DL: dl}
	req := DownloadRequest{ProductID: "RJ5", Manifest: testManifest(), BaseDir: base}

	done := make(chan error, 1)
	go func() {
		_, err := orch.DownloadProduct(context.Background(), req, nil)
		done <- err
	}()
	<-entered

	_, err := orch.DownloadProduct(context.Background(), req, nil)
	assert.ErrorIs(t, err, errors.ErrProductBusy)

	// other products are not blocked
	_, err = orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ6", Manifest: testManifest(), BaseDir: base}, nil)
	assert.NoError(t, err)

	close(proceed)
	require.NoError(t, <-done)
}

func TestDownloadProduct_NotConfigured(t *testing.T) {
	orch := &Orchestrator{}
	_, err := orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ1"}, nil)
	assert.Error(t, err)

	ctrl := gomock.NewController(t)
	orch = &Orchestrator{DL: dlmocks.NewMockManager(ctrl)}
	_, err = orch.DownloadProduct(context.Background(), DownloadRequest{ProductID: "RJ1", Extract: true}, nil)
	assert.Error(t, err)
}

func TestRunCatalogSync_RejectsConcurrentSync(t *testing.T) {
	orch := &Orchestrator{}
	entered := make(chan struct{})
	proceed := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- orch.RunCatalogSync(context.Background(), "refresh", func(context.Context) error {
			close(entered)
			<-proceed
			return nil
		})
	}()
	<-entered
	assert.True(t, orch.SyncInProgress())

	called := false
	err := orch.RunCatalogSync(context.Background(), "scan", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errors.ErrSyncInProgress)
	assert.False(t, called)

	_, err = orch.ScanLibrary(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, errors.ErrSyncInProgress)

	close(proceed)
	require.NoError(t, <-done)
	assert.False(t, orch.SyncInProgress())
}

func TestRunCatalogSync_ReleasesOnError(t *testing.T) {
	orch := &Orchestrator{}
	boom := fmt.Errorf("boom")

	assert.ErrorIs(t, orch.RunCatalogSync(context.Background(), "refresh", func(context.Context) error { return boom }), boom)
	assert.False(t, orch.SyncInProgress())
	assert.NoError(t, orch.RunCatalogSync(context.Background(), "refresh", func(context.Context) error { return nil }))
}

func TestScanLibrary(t *testing.T) {
	base := t.TempDir()
	mk := func(rel string, size int) {
		path := filepath.Join(base, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	mk("RJ300/a.zip", 10)
	mk("RJ100/a.zip", 4)
	mk("RJ100/extracted/b.txt", 6)
	mk("loose.txt", 1)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "RJ200"), 0o755))

	orch := &Orchestrator{}
	products, err := orch.ScanLibrary(context.Background(), base)
	require.NoError(t, err)

	require.Len(t, products, 3)
	assert.Equal(t, "RJ100", products[0].ID)
	assert.Equal(t, 2, products[0].Files)
	assert.Equal(t, uint64(10), products[0].Size)
	assert.Equal(t, "RJ200", products[1].ID)
	assert.Zero(t, products[1].Files)
	assert.Equal(t, "RJ300", products[2].ID)
	assert.Equal(t, filepath.Join(base, "RJ300"), products[2].Path)
	assert.False(t, orch.SyncInProgress())
}

func TestScanLibrary_MissingDir(t *testing.T) {
	orch := &Orchestrator{}
	products, err := orch.ScanLibrary(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, products)
}
