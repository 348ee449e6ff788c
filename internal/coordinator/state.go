package coordinator

import (
	"sort"
	"time"

	"supportscraper/internal/tracker"
)

// Outcome is the terminal (or pending) status of a batch wait
type Outcome string

const (
	OutcomePending        Outcome = "Pending"
	OutcomeCompleted      Outcome = "Completed"
	OutcomeStalledAborted Outcome = "StalledAborted"
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	return string(o)
}

// IsFinished returns true once the wait loop has nothing left to do
func (o Outcome) IsFinished() bool {
	return o == OutcomeCompleted || o == OutcomeStalledAborted
}

// Reason tells apart the ways a batch can end up StalledAborted
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoProgress Reason = "NoProgress"
	ReasonIOError    Reason = "IOError"
	ReasonTimeout    Reason = "Timeout"
)

// EntryState is the lifecycle position of a tracked download
type EntryState string

const (
	EntryTransient EntryState = "transient"
	EntryCompleted EntryState = "completed"
	EntryAbandoned EntryState = "abandoned"
)

// Entry is a download tracked across polls
type Entry struct {
	Name          string     `yaml:"name"`
	SizeBytes     int64      `yaml:"size_bytes"`
	Transient     bool       `yaml:"-"`
	Placeholder   bool       `yaml:"-"`
	State         EntryState `yaml:"state"`
	FirstSeenAt   time.Time  `yaml:"-"`
	LastChangedAt time.Time  `yaml:"last_changed_at"`
}

// BatchState is owned by a single AwaitBatch call and discarded afterwards.
type BatchState struct {
	ExpectedCount   int
	Entries         map[string]*Entry
	NoProgressPolls int
	ListFailures    int
	Polls           int
	Outcome         Outcome
	Reason          Reason

	baselined bool
	observed  bool // some download has been tracked in this batch
	abandoned []string
}

// NewBatchState returns a pending state. expected <= 0 means the count is unknown.
func NewBatchState(expected int) *BatchState {
	return &BatchState{
		ExpectedCount: expected,
		Entries:       make(map[string]*Entry),
		Outcome:       OutcomePending,
	}
}

// pollDiff describes what one successful scan changed
type pollDiff struct {
	Progressed  bool
	Appeared    []string
	Completed   []string
	Disappeared []string
	Abandoned   []string
	Renamed     []string // placeholders that left under their temporary name
	Regressions []string // stable -> transient or shrinking sizes; ignored
}

// Apply folds one scan into the state. Names in ignore are never tracked.
func (s *BatchState) Apply(scan []tracker.Entry, now time.Time, ignore map[string]struct{}) pollDiff {
	var diff pollDiff
	seen := make(map[string]struct{}, len(scan))

	for _, e := range scan {
		if _, skip := ignore[e.Name]; skip {
			continue
		}
		seen[e.Name] = struct{}{}

		tracked, ok := s.Entries[e.Name]
		if !ok {
			state := EntryTransient
			if !e.Transient {
				state = EntryCompleted
				diff.Completed = append(diff.Completed, e.Name)
			}
			s.Entries[e.Name] = &Entry{
				Name:          e.Name,
				SizeBytes:     e.SizeBytes,
				Transient:     e.Transient,
				Placeholder:   e.Placeholder,
				State:         state,
				FirstSeenAt:   now,
				LastChangedAt: now,
			}
			diff.Appeared = append(diff.Appeared, e.Name)
			diff.Progressed = true
			s.observed = true
			continue
		}

		changed := false
		if e.SizeBytes > tracked.SizeBytes {
			tracked.SizeBytes = e.SizeBytes
			changed = true
		} else if e.SizeBytes < tracked.SizeBytes {
			diff.Regressions = append(diff.Regressions, e.Name)
		}

		switch {
		case tracked.Transient && !e.Transient:
			tracked.Transient = false
			tracked.State = EntryCompleted
			diff.Completed = append(diff.Completed, e.Name)
			changed = true
		case !tracked.Transient && e.Transient:
			diff.Regressions = append(diff.Regressions, e.Name)
		}

		if changed {
			tracked.LastChangedAt = now
			diff.Progressed = true
		}
	}

	for name, tracked := range s.Entries {
		if _, ok := seen[name]; ok {
			continue
		}
		switch {
		case tracked.Transient && tracked.Placeholder:
			diff.Renamed = append(diff.Renamed, name)
		case tracked.Transient:
			diff.Disappeared = append(diff.Disappeared, name)
			tracked.State = EntryAbandoned
			s.abandoned = append(s.abandoned, name)
			diff.Abandoned = append(diff.Abandoned, name)
		default:
			diff.Disappeared = append(diff.Disappeared, name)
		}
		delete(s.Entries, name)
		diff.Progressed = true
	}

	s.Polls++
	if !s.baselined {
		// The first successful poll is the baseline and is never counted as stagnant.
		s.baselined = true
		s.NoProgressPolls = 0
	} else if diff.Progressed {
		s.NoProgressPolls = 0
	} else {
		s.NoProgressPolls++
	}

	sort.Strings(diff.Disappeared)
	sort.Strings(diff.Abandoned)
	sort.Strings(diff.Renamed)
	return diff
}

// StableCount returns the number of tracked entries that are no longer transient
func (s *BatchState) StableCount() int {
	n := 0
	for _, e := range s.Entries {
		if !e.Transient {
			n++
		}
	}
	return n
}

// TransientCount returns the number of tracked entries still being written
func (s *BatchState) TransientCount() int {
	return len(s.Entries) - s.StableCount()
}

// TotalBytes sums the sizes of all tracked entries
func (s *BatchState) TotalBytes() int64 {
	var total int64
	for _, e := range s.Entries {
		total += e.SizeBytes
	}
	return total
}

// IsComplete applies the completion test for known and unknown expected counts.
// With an unknown count the batch needs at least one observed download, so it
// cannot complete before anything started; an abandoned download counts.
func (s *BatchState) IsComplete() bool {
	if !s.baselined {
		return false
	}
	if s.ExpectedCount > 0 {
		return s.StableCount() >= s.ExpectedCount
	}
	return s.TransientCount() == 0 && s.observed
}

func (s *BatchState) finish(outcome Outcome, reason Reason) {
	s.Outcome = outcome
	s.Reason = reason
}

func (s *BatchState) completedEntries() []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if !e.Transient {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *BatchState) pendingNames() []string {
	var out []string
	for _, e := range s.Entries {
		if e.Transient {
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *BatchState) abandonedNames() []string {
	out := append([]string(nil), s.abandoned...)
	sort.Strings(out)
	return out
}
