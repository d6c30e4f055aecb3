package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const progressThrottle = 65 * time.Millisecond

// progressBar renders aggregated batch progress. The bar is created on the
// first update because the total is only known once the batch starts.
type progressBar struct {
	mu          sync.Mutex
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

func newProgressBar(out io.Writer, description string) *progressBar {
	return &progressBar{out: out, description: description}
}

// Update implements download.ProgressObserver.
func (p *progressBar) Update(received, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		out := p.out
		p.bar = progressbar.NewOptions64(int64(total),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionSetWriter(out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(progressThrottle),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(out, "\n")
			}),
		)
	}
	_ = p.bar.Set64(int64(received))
}

// Close ends the bar line. A completed batch fills the bar; an aborted one
// leaves it where it stopped.
func (p *progressBar) Close(completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	if completed {
		_ = p.bar.Finish()
		return
	}
	_, _ = fmt.Fprint(p.out, "\n")
}
