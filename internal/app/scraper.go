package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"supportscraper/internal/config"
	"supportscraper/internal/coordinator"
	"supportscraper/internal/logging"
	"supportscraper/internal/portal"
	"supportscraper/internal/tracker"
	"supportscraper/pkg/utils"
)

var (
	ErrIncompleteRun = errors.New("not every batch completed")
	ErrNoBatches     = errors.New("no batches to run")
	ErrNothingQueued = errors.New("no download could be started")
)

// ScraperOptions configures a fetch run
type ScraperOptions struct {
	Batches     []config.BatchConfig // Required: batches to run in order
	DownloadDir string               // defaults to download.dir
}

// ScraperApp logs in and runs each batch: trigger downloads, then wait for them
type ScraperApp struct {
	config    *config.Config
	portal    Portal
	waiter    BatchWaiter
	tracker   *tracker.Tracker
	recorder  Recorder
	logger    zerolog.Logger
	diskUsage func(path string) (*disk.UsageStat, error)
	onLogin   func()
}

// NewScraperApp creates a new scraper application
func NewScraperApp(
	cfg *config.Config,
	portal Portal,
	waiter BatchWaiter,
	tr *tracker.Tracker,
	recorder Recorder,
	logger zerolog.Logger,
) *ScraperApp {
	return &ScraperApp{
		config:    cfg,
		portal:    portal,
		waiter:    waiter,
		tracker:   tr,
		recorder:  recorder,
		logger:    logging.Component(logger, "scraper"),
		diskUsage: disk.Usage,
	}
}

// OnLogin registers a hook run before waiting for the operator to log in
func (s *ScraperApp) OnLogin(fn func()) {
	s.onLogin = fn
}

// Run executes every batch in order. A batch that fails or stalls is recorded and
// the run moves on; the returned error wraps ErrIncompleteRun in that case.
func (s *ScraperApp) Run(ctx context.Context, opts *ScraperOptions) error {
	if len(opts.Batches) == 0 {
		return ErrNoBatches
	}
	dir := opts.DownloadDir
	if dir == "" {
		dir = s.config.Download.Dir
	}

	if err := utils.EnsureDirectory(dir); err != nil {
		return err
	}
	if err := s.portal.SetDownloadDir(dir); err != nil {
		return err
	}

	if s.onLogin != nil {
		s.onLogin()
	}
	if err := s.portal.WaitForUserLogin(ctx, s.config.Portal.LoginTimeout()); err != nil {
		logging.Critical(s.logger).Err(err).Msg("Login failed")
		return fmt.Errorf("failed to log in: %w", err)
	}

	incomplete := 0
	for i, batch := range opts.Batches {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Int("skipped", len(opts.Batches)-i).Msg("Run cancelled, skipping remaining batches")
			return err
		}

		label := batch.Label()
		result, err := s.runBatch(ctx, batch, dir)
		if err != nil {
			s.logger.Error().Err(err).Str("batch", label).Msg("Batch failed")
			s.recorder.RecordFailure(label, err)
			incomplete++
			continue
		}

		s.recorder.Record(label, result)
		if result.Outcome != coordinator.OutcomeCompleted {
			incomplete++
		}
	}

	if incomplete > 0 {
		return fmt.Errorf("%w: %d of %d batch(es)", ErrIncompleteRun, incomplete, len(opts.Batches))
	}
	return nil
}

func (s *ScraperApp) runBatch(ctx context.Context, batch config.BatchConfig, dir string) (coordinator.Result, error) {
	label := batch.Label()
	log := s.logger.With().Str("batch", label).Logger()

	catalog, err := s.portal.Catalog(ctx, batch.UpdateType)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to load %s catalog: %w", batch.UpdateType, err)
	}
	releases, err := catalog.Select(batch.Section, batch.All)
	if err != nil {
		return coordinator.Result{}, err
	}

	s.checkDiskSpace(dir)

	ignore, err := s.tracker.Names(dir)
	if err != nil {
		return coordinator.Result{}, fmt.Errorf("failed to snapshot download directory: %w", err)
	}

	triggered := 0
	for _, r := range releases {
		if batch.Notes {
			// rewritten notes must count towards this batch
			delete(ignore, utils.SanitizeFileName(r.NotesFileName()))
		}
		if err := s.portal.TriggerDownload(ctx, portal.Item{Release: r, Notes: batch.Notes}); err != nil {
			log.Warn().Err(err).Str("version", r.Version).Msg("Could not start download")
			continue
		}
		triggered++
	}
	if triggered == 0 {
		return coordinator.Result{}, fmt.Errorf("%w: %s", ErrNothingQueued, label)
	}

	expected := triggered
	if batch.Expected != nil {
		expected = *batch.Expected
	}
	log.Info().Int("releases", len(releases)).Int("triggered", triggered).Int("expected", expected).Msg("Downloads triggered")

	b := batchFor(s.config.Download, label, dir)
	b.ExpectedCount = expected
	b.Ignore = ignore
	return s.waiter.AwaitBatch(ctx, b), nil
}

// checkDiskSpace only warns; the batch still runs
func (s *ScraperApp) checkDiskSpace(dir string) {
	if s.config.Download.MinFreeBytes == 0 || s.diskUsage == nil {
		return
	}
	usage, err := s.diskUsage(dir)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Could not read free disk space")
		return
	}
	if usage.Free < s.config.Download.MinFreeBytes {
		s.logger.Warn().
			Str("dir", dir).
			Str("free", utils.FormatFileSize(int64(usage.Free))).
			Str("threshold", utils.FormatFileSize(int64(s.config.Download.MinFreeBytes))).
			Msg("Low disk space in download directory")
	}
}
