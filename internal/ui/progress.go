package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"supportscraper/internal/coordinator"
	"supportscraper/pkg/utils"
)

// BatchProgress renders one progress bar per batch wait from coordinator poll reports
type BatchProgress struct {
	mu      sync.Mutex
	w       io.Writer
	bar     *progressbar.ProgressBar
	batchID string
}

// NewBatchProgress creates a progress display writing to w
func NewBatchProgress(w io.Writer) *BatchProgress {
	return &BatchProgress{w: w}
}

// Observe is a coordinator.Observer
func (p *BatchProgress) Observe(report coordinator.PollReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if report.BatchID != p.batchID {
		p.finishLocked()
		p.startLocked(report)
	}

	if report.Expected > 0 {
		_ = p.bar.Set(min(report.Stable, report.Expected))
	} else {
		_ = p.bar.Add(1)
	}
	p.bar.Describe(describe(report))
}

// Finish closes the current bar, if any
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *BatchProgress) startLocked(report coordinator.PollReport) {
	total := -1 // spinner when the batch size is unknown
	if report.Expected > 0 {
		total = report.Expected
	}

	p.batchID = report.BatchID
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(describe(report)),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *BatchProgress) finishLocked() {
	if p.bar == nil {
		return
	}
	if !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
	p.bar = nil
	p.batchID = ""
}

func describe(report coordinator.PollReport) string {
	desc := fmt.Sprintf("%s: %d done, %d active, %s",
		report.Label, report.Stable, report.Transient, utils.FormatFileSize(report.TotalBytes))
	if report.NoProgressPolls > 0 {
		desc += fmt.Sprintf(" (idle %d)", report.NoProgressPolls)
	}
	return desc
}
