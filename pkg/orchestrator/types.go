//go:generate mockgen -destination=./mocks/orchestrator.go . Extractor,HookRunner

package orchestrator

import (
	"context"
	"sync"

	"github.com/cperrin88/dlkeep/pkg/download"
	"github.com/cperrin88/dlkeep/pkg/hook"
	"github.com/cperrin88/dlkeep/pkg/model"
)

// Downloader fetches all files of a product; download.Manager satisfies it.
type Downloader = download.Manager

// Extractor unpacks downloaded archives inside a product directory.
type Extractor interface {
	ExtractDownloads(ctx context.Context, targetDir string, files []string) ([]string, error)
}

// HookRunner executes user scripts around a download.
type HookRunner interface {
	Execute(ctx context.Context, hookType hook.HookType, hctx hook.HookContext) error
}

// Orchestrator ties the download manager, archive extraction and hooks
// together and enforces which operations may run at the same time.
// The zero value is usable once DL is set; an Orchestrator must not be copied.
type Orchestrator struct {
	DL         Downloader
	Extractor  Extractor  // optional; required when a request asks for extraction
	HookRunner HookRunner // optional
	Hooks      Hooks      // Hooks for progress and event notifications

	guard SyncGuard

	busyMu sync.Mutex
	busy   map[string]struct{}
}

// Event phases.
const (
	PhasePreparing   = "preparing"
	PhaseDownloading = "downloading"
	PhaseExtracting  = "extracting"
	PhaseHook        = "hook"
	PhaseScanning    = "scanning"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string // preparing|downloading|extracting|hook|scanning|done|error
	ID    string // product id
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// DownloadRequest describes one product download.
type DownloadRequest struct {
	ProductID string
	Manifest  *model.Manifest
	BaseDir   string
	Extract   bool
}
