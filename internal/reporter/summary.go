// Package reporter collects batch outcomes of a run and renders them for the operator.
package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"supportscraper/internal/coordinator"
	"supportscraper/pkg/utils"
)

// BatchReport is the outcome of one batch. Error is set when the batch failed
// before any download could be awaited, e.g. an unknown section.
type BatchReport struct {
	Label  string              `yaml:"label"`
	Error  string              `yaml:"error,omitempty"`
	Result *coordinator.Result `yaml:"result,omitempty"`
}

// Completed reports whether every download of the batch finished
func (r BatchReport) Completed() bool {
	return r.Error == "" && r.Result != nil && r.Result.Outcome == coordinator.OutcomeCompleted
}

// Status is a one-word summary of the batch
func (r BatchReport) Status() string {
	switch {
	case r.Error != "":
		return "FAILED"
	case r.Result == nil:
		return "UNKNOWN"
	case r.Result.Outcome == coordinator.OutcomeCompleted:
		return "COMPLETED"
	case r.Result.Reason != coordinator.ReasonNone:
		return fmt.Sprintf("STALLED (%s)", r.Result.Reason)
	}
	return r.Result.Outcome.String()
}

// Summary accumulates batch reports for a run
type Summary struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	reports   []BatchReport
	now       func() time.Time
}

// NewSummary starts a run summary
func NewSummary() *Summary {
	return &Summary{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// RunID identifies the run in logs and the YAML report
func (s *Summary) RunID() string {
	return s.runID
}

// Record stores the result of an awaited batch
func (s *Summary) Record(label string, result coordinator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, BatchReport{Label: label, Result: &result})
}

// RecordFailure stores a batch that never reached the wait
func (s *Summary) RecordFailure(label string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, BatchReport{Label: label, Error: err.Error()})
}

// Reports returns a copy of the recorded reports in order
func (s *Summary) Reports() []BatchReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BatchReport(nil), s.reports...)
}

// Incomplete counts batches that did not complete
func (s *Summary) Incomplete() int {
	n := 0
	for _, r := range s.Reports() {
		if !r.Completed() {
			n++
		}
	}
	return n
}

// Print writes the run summary block
func (s *Summary) Print(w io.Writer) {
	reports := s.Reports()

	fmt.Fprintf(w, "=============================================\n")
	fmt.Fprintf(w, "Run %s finished in %s\n", s.runID, s.now().Sub(s.startedAt).Round(time.Second))
	for _, r := range reports {
		fmt.Fprintf(w, "+ %-60s %s\n", r.Label, r.Status())
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
			continue
		}
		if r.Result == nil {
			continue
		}

		var size int64
		for _, e := range r.Result.Completed {
			size += e.SizeBytes
		}
		fmt.Fprintf(w, "    %d file(s), %s, %d poll(s), %s\n",
			len(r.Result.Completed), utils.FormatFileSize(size), r.Result.Polls, r.Result.Elapsed.Round(time.Millisecond))
		for _, name := range r.Result.Pending {
			fmt.Fprintf(w, "    still downloading: %s\n", name)
		}
		for _, name := range r.Result.Abandoned {
			fmt.Fprintf(w, "    abandoned: %s\n", name)
		}
		if r.Result.LastError != "" {
			fmt.Fprintf(w, "    last error: %s\n", r.Result.LastError)
		}
	}
	fmt.Fprintf(w, "%d of %d batch(es) completed\n", len(reports)-s.Incomplete(), len(reports))
	fmt.Fprintf(w, "=============================================\n")
}

type runReport struct {
	RunID      string        `yaml:"run_id"`
	StartedAt  time.Time     `yaml:"started_at"`
	Elapsed    time.Duration `yaml:"elapsed"`
	Completed  int           `yaml:"completed"`
	Incomplete int           `yaml:"incomplete"`
	Batches    []BatchReport `yaml:"batches"`
}

// WriteYAML encodes the run report to w
func (s *Summary) WriteYAML(w io.Writer) error {
	reports := s.Reports()
	incomplete := s.Incomplete()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(runReport{
		RunID:      s.runID,
		StartedAt:  s.startedAt,
		Elapsed:    s.now().Sub(s.startedAt),
		Completed:  len(reports) - incomplete,
		Incomplete: incomplete,
		Batches:    reports,
	})
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the run report to path
func (s *Summary) SaveYAML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := s.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
