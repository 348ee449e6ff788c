package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"supportscraper/internal/tracker"
)

// Defaults applied when a Batch leaves a tunable unset
const (
	DefaultPollInterval       = 2 * time.Second
	DefaultMaxNoProgressPolls = 30
	DefaultMaxListRetries     = 3
)

// Scanner produces a classification of a download directory
type Scanner interface {
	Scan(dir string) ([]tracker.Entry, error)
}

// Batch describes one wait: downloads have already been triggered into Dir.
type Batch struct {
	ID                 string // generated when empty
	Label              string
	Dir                string
	ExpectedCount      int // <= 0: unknown, wait until nothing is transient
	PollInterval       time.Duration
	MaxNoProgressPolls int
	MaxListRetries     int
	Deadline           time.Duration // 0: bounded only by ctx
	Ignore             map[string]struct{}
}

// PollReport is handed to the Observer after every successful poll
type PollReport struct {
	BatchID         string
	Label           string
	Poll            int
	Expected        int
	Stable          int
	Transient       int
	TotalBytes      int64
	NoProgressPolls int
	Progressed      bool
}

// Observer receives poll reports, e.g. to drive a progress display
type Observer func(PollReport)

// Result is the classified end of a batch wait. AwaitBatch never returns an error.
type Result struct {
	BatchID   string        `yaml:"batch_id"`
	Label     string        `yaml:"label"`
	Outcome   Outcome       `yaml:"outcome"`
	Reason    Reason        `yaml:"reason,omitempty"`
	Expected  int           `yaml:"expected"`
	Polls     int           `yaml:"polls"`
	Completed []Entry       `yaml:"completed,omitempty"`
	Pending   []string      `yaml:"pending,omitempty"`
	Abandoned []string      `yaml:"abandoned,omitempty"`
	Elapsed   time.Duration `yaml:"elapsed"`
	LastError string        `yaml:"last_error,omitempty"`
}

// Coordinator waits for a batch of browser downloads to settle
type Coordinator struct {
	scanner  Scanner
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option customizes a Coordinator
type Option func(*Coordinator)

// WithObserver registers a callback invoked after each successful poll
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// WithClock replaces time.Now for entry timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a new coordinator
func NewCoordinator(scanner Scanner, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		scanner: scanner,
		logger:  logger.With().Str("component", "coordinator").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AwaitBatch polls batch.Dir until the batch completes, stalls, or ctx/deadline ends.
func (c *Coordinator) AwaitBatch(ctx context.Context, batch Batch) Result {
	batch = withDefaults(batch)
	if batch.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batch.Deadline)
		defer cancel()
	}

	log := c.logger.With().Str("batch", batch.ID).Logger()
	if batch.Label != "" {
		log = log.With().Str("label", batch.Label).Logger()
	}
	log.Info().
		Str("dir", batch.Dir).
		Int("expected", batch.ExpectedCount).
		Dur("poll_interval", batch.PollInterval).
		Int("max_no_progress_polls", batch.MaxNoProgressPolls).
		Msg("Waiting for batch downloads")

	start := c.now()
	state := NewBatchState(batch.ExpectedCount)
	var lastErr error

	timer := time.NewTimer(batch.PollInterval)
	defer timer.Stop()

	for state.Outcome == OutcomePending {
		select {
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Int("polls", state.Polls).Msg("Batch wait cancelled before completion")
			state.finish(OutcomeStalledAborted, ReasonTimeout)
			continue
		case <-timer.C:
		}

		entries, err := c.scanner.Scan(batch.Dir)
		if err != nil {
			lastErr = err
			state.ListFailures++
			if state.ListFailures >= batch.MaxListRetries {
				log.Error().Err(err).Int("failures", state.ListFailures).Msg("Download directory unavailable, giving up on batch")
				state.finish(OutcomeStalledAborted, ReasonIOError)
				continue
			}
			log.Warn().Err(err).
				Int("failures", state.ListFailures).
				Int("max", batch.MaxListRetries).
				Msg("Retrying download directory listing")
			timer.Reset(batch.PollInterval)
			continue
		}
		state.ListFailures = 0

		diff := state.Apply(entries, c.now(), batch.Ignore)
		c.logDiff(log, diff)
		c.notify(batch, state, diff.Progressed)

		switch {
		case state.IsComplete():
			state.finish(OutcomeCompleted, ReasonNone)
		case state.NoProgressPolls >= batch.MaxNoProgressPolls:
			log.Warn().
				Int("no_progress_polls", state.NoProgressPolls).
				Strs("pending", state.pendingNames()).
				Msg("No download progress, batch considered stalled; delete stuck files to let it finish")
			state.finish(OutcomeStalledAborted, ReasonNoProgress)
		default:
			timer.Reset(batch.PollInterval)
		}
	}

	result := Result{
		BatchID:   batch.ID,
		Label:     batch.Label,
		Outcome:   state.Outcome,
		Reason:    state.Reason,
		Expected:  batch.ExpectedCount,
		Polls:     state.Polls,
		Completed: state.completedEntries(),
		Pending:   state.pendingNames(),
		Abandoned: state.abandonedNames(),
		Elapsed:   c.now().Sub(start),
	}
	if lastErr != nil {
		result.LastError = lastErr.Error()
	}

	event := log.Info()
	if result.Outcome != OutcomeCompleted {
		event = log.Warn()
	}
	event.
		Str("outcome", result.Outcome.String()).
		Str("reason", string(result.Reason)).
		Int("completed", len(result.Completed)).
		Int("pending", len(result.Pending)).
		Int("polls", result.Polls).
		Msg("Batch wait finished")

	return result
}

func (c *Coordinator) logDiff(log zerolog.Logger, diff pollDiff) {
	for _, name := range diff.Completed {
		log.Debug().Str("file", name).Msg("Download finalized")
	}
	for _, name := range diff.Disappeared {
		log.Warn().Str("file", name).Msg("Tracked download disappeared from directory")
	}
	for _, name := range diff.Renamed {
		log.Debug().Str("file", name).Msg("Placeholder download renamed")
	}
	for _, name := range diff.Abandoned {
		log.Warn().Str("file", name).Msg("In-progress download abandoned")
	}
	for _, name := range diff.Regressions {
		log.Warn().Str("file", name).Msg("Ignoring backwards change of tracked download")
	}
}

func (c *Coordinator) notify(batch Batch, state *BatchState, progressed bool) {
	if c.observer == nil {
		return
	}
	c.observer(PollReport{
		BatchID:         batch.ID,
		Label:           batch.Label,
		Poll:            state.Polls,
		Expected:        batch.ExpectedCount,
		Stable:          state.StableCount(),
		Transient:       state.TransientCount(),
		TotalBytes:      state.TotalBytes(),
		NoProgressPolls: state.NoProgressPolls,
		Progressed:      progressed,
	})
}

func withDefaults(b Batch) Batch {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.PollInterval <= 0 {
		b.PollInterval = DefaultPollInterval
	}
	if b.MaxNoProgressPolls <= 0 {
		b.MaxNoProgressPolls = DefaultMaxNoProgressPolls
	}
	if b.MaxListRetries <= 0 {
		b.MaxListRetries = DefaultMaxListRetries
	}
	return b
}
