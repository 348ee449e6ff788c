package tracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrDirectoryUnavailable is returned when the watched directory is missing or cannot be listed.
var ErrDirectoryUnavailable = errors.New("download directory unavailable")

// DefaultTransientSuffixes marks in-flight Chrome downloads.
var DefaultTransientSuffixes = []string{".crdownload"}

// DefaultPlaceholderPatterns match the temporary names Chrome gives a download
// before it knows the real file name.
var DefaultPlaceholderPatterns = []string{"Unconfirmed *"}

// Entry is a point-in-time view of one download in the watched directory.
type Entry struct {
	Name        string // logical name, transient suffix stripped
	SizeBytes   int64
	Transient   bool
	Placeholder bool // transient under a temporary name that will be renamed
}

// Options configures how directory contents are classified.
type Options struct {
	TransientSuffixes   []string
	PlaceholderPatterns []string // filepath.Match patterns on the logical name; nil uses the defaults
	IncludeHidden       bool
}

// Tracker classifies the files of a download directory.
type Tracker struct {
	suffixes      []string
	placeholders  []string
	includeHidden bool
}

// New creates a tracker. An empty suffix list falls back to DefaultTransientSuffixes.
func New(opts Options) *Tracker {
	suffixes := opts.TransientSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultTransientSuffixes
	}
	placeholders := opts.PlaceholderPatterns
	if placeholders == nil {
		placeholders = DefaultPlaceholderPatterns
	}
	return &Tracker{
		suffixes:      append([]string(nil), suffixes...),
		placeholders:  append([]string(nil), placeholders...),
		includeHidden: opts.IncludeHidden,
	}
}

// Scan lists dir and returns one entry per logical download, sorted by name.
// When both "x" and "x<suffix>" exist the transient file wins.
func (t *Tracker) Scan(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryUnavailable, dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	byName := make(map[string]Entry, len(dirEntries))
	for _, de := range dirEntries {
		fileName := de.Name()
		if !t.includeHidden && strings.HasPrefix(fileName, ".") {
			continue
		}
		if !de.Type().IsRegular() {
			continue
		}

		fi, err := de.Info()
		if err != nil {
			// Renamed or removed by the download manager since ReadDir.
			continue
		}

		name, transient := t.Classify(fileName)
		if existing, ok := byName[name]; ok && existing.Transient && !transient {
			continue
		}
		byName[name] = Entry{
			Name:        name,
			SizeBytes:   fi.Size(),
			Transient:   transient,
			Placeholder: transient && t.IsPlaceholder(name),
		}
	}

	entries := make([]Entry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Classify strips a transient suffix from fileName and reports whether one was present.
func (t *Tracker) Classify(fileName string) (string, bool) {
	for _, suffix := range t.suffixes {
		if suffix == "" {
			continue
		}
		if strings.HasSuffix(fileName, suffix) && len(fileName) > len(suffix) {
			return strings.TrimSuffix(fileName, suffix), true
		}
	}
	return fileName, false
}

// IsPlaceholder reports whether a logical name is a temporary download name.
// Malformed patterns never match.
func (t *Tracker) IsPlaceholder(name string) bool {
	for _, pattern := range t.placeholders {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Names returns the logical names currently present in dir.
func (t *Tracker) Names(dir string) (map[string]struct{}, error) {
	entries, err := t.Scan(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		names[e.Name] = struct{}{}
	}
	return names, nil
}

