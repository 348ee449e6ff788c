package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"supportscraper/internal/config"
	"supportscraper/internal/coordinator"
	"supportscraper/internal/logging"
)

// WatchOptions configures the watch application behavior
type WatchOptions struct {
	Dir      string // Required: directory the browser downloads into
	Expected int    // <= 0 waits until nothing is in progress
}

// WatchApp awaits downloads the operator started by hand
type WatchApp struct {
	config   *config.Config
	waiter   BatchWaiter
	recorder Recorder
	logger   zerolog.Logger
}

// NewWatchApp creates a new watch application
func NewWatchApp(cfg *config.Config, waiter BatchWaiter, recorder Recorder, logger zerolog.Logger) *WatchApp {
	return &WatchApp{
		config:   cfg,
		waiter:   waiter,
		recorder: recorder,
		logger:   logging.Component(logger, "watch"),
	}
}

// Run waits for one batch in opts.Dir. Files present before the wait count towards it.
func (w *WatchApp) Run(ctx context.Context, opts *WatchOptions) error {
	if opts.Dir == "" {
		return fmt.Errorf("directory is required")
	}
	if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", opts.Dir)
	}

	label := "watch " + opts.Dir
	w.logger.Info().Str("dir", opts.Dir).Int("expected", opts.Expected).Msg("Watching directory")

	b := batchFor(w.config.Download, label, opts.Dir)
	b.ExpectedCount = opts.Expected
	result := w.waiter.AwaitBatch(ctx, b)
	w.recorder.Record(label, result)

	if result.Outcome != coordinator.OutcomeCompleted {
		return fmt.Errorf("%w: %s %s", ErrIncompleteRun, result.Outcome, result.Reason)
	}
	return nil
}
