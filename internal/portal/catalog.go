package portal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"golang.org/x/mod/semver"
)

var (
	ErrUnknownSection = errors.New("section not found on update page")
	ErrNoReleases     = errors.New("section has no releases")
	ErrStaleRelease   = errors.New("release belongs to a page that is no longer loaded")
)

// headerPlaceholder collects rows that appear before the first grouping header
const headerPlaceholder = "NULL"

// dateLayouts are tried in order when comparing release dates
var dateLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Release is one row of an update grid
type Release struct {
	UpdateType string
	Section    string
	Version    string
	Date       string

	generation int
	notes      *rod.Element
	download   *rod.Element
}

// Time parses the release date with the known portal layouts
func (r Release) Time() (time.Time, bool) {
	date := strings.TrimSpace(r.Date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NotesFileName is the name release notes are saved under
func (r Release) NotesFileName() string {
	return fmt.Sprintf("Updates_%s_%s_%s.html", r.UpdateType, r.Section, r.Version)
}

// Item is a single download request
type Item struct {
	Release Release
	Notes   bool // release notes page instead of the raw file
}

// Catalog holds the releases of one update page, grouped by section header
type Catalog struct {
	UpdateType string
	sections   map[string][]Release
	order      []string
}

// NewCatalog creates an empty catalog for an update type
func NewCatalog(updateType string) *Catalog {
	return &Catalog{
		UpdateType: updateType,
		sections:   make(map[string][]Release),
	}
}

// Add appends a release to its section
func (c *Catalog) Add(r Release) {
	if _, ok := c.sections[r.Section]; !ok {
		c.order = append(c.order, r.Section)
	}
	c.sections[r.Section] = append(c.sections[r.Section], r)
}

// Sections returns section names in page order
func (c *Catalog) Sections() []string {
	return append([]string(nil), c.order...)
}

// Releases returns the releases listed under section
func (c *Catalog) Releases(section string) ([]Release, error) {
	releases, ok := c.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownSection, c.UpdateType, section)
	}
	return append([]Release(nil), releases...), nil
}

// Select returns every release of section, or only the latest one
func (c *Catalog) Select(section string, all bool) ([]Release, error) {
	releases, err := c.Releases(section)
	if err != nil {
		return nil, err
	}
	if all {
		return releases, nil
	}
	latest, ok := Latest(releases)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoReleases, c.UpdateType, section)
	}
	return []Release{latest}, nil
}

// Latest picks the newest release by date, breaking ties on version
func Latest(releases []Release) (Release, bool) {
	if len(releases) == 0 {
		return Release{}, false
	}
	best := releases[0]
	for _, r := range releases[1:] {
		if newer(r, best) {
			best = r
		}
	}
	return best, true
}

// SortNewestFirst orders releases for display
func SortNewestFirst(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		return newer(releases[i], releases[j])
	})
}

func newer(a, b Release) bool {
	ta, okA := a.Time()
	tb, okB := b.Time()
	switch {
	case okA && okB:
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
	case a.Date != b.Date:
		return a.Date > b.Date
	}
	return compareVersions(a.Version, b.Version) > 0
}

func compareVersions(a, b string) int {
	va := "v" + strings.TrimPrefix(strings.TrimSpace(a), "v")
	vb := "v" + strings.TrimPrefix(strings.TrimSpace(b), "v")
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

// gridRow is the page-independent view of one <tr> of the update grid
type gridRow struct {
	Class string
	Title string // header text for grouping rows
	Cells []gridCell
}

type gridCell struct {
	Style string
	HTML  string
	el    *rod.Element
}

// buildCatalog groups grid rows under their preceding k-grouping-row header.
// Hidden cells are dropped; visible cells are [_, version, date, notes, download].
func buildCatalog(updateType string, generation int, rows []gridRow) *Catalog {
	catalog := NewCatalog(updateType)
	header := headerPlaceholder

	for _, row := range rows {
		if strings.Contains(row.Class, "k-grouping-row") {
			header = cleanHeader(row.Title)
			continue
		}

		var visible []gridCell
		for _, cell := range row.Cells {
			if strings.Contains(strings.ReplaceAll(cell.Style, " ", ""), "display:none") {
				continue
			}
			visible = append(visible, cell)
		}
		if len(visible) < 5 {
			continue
		}

		catalog.Add(Release{
			UpdateType: updateType,
			Section:    header,
			Version:    strings.TrimSpace(visible[1].HTML),
			Date:       strings.TrimSpace(visible[2].HTML),
			generation: generation,
			notes:      visible[3].el,
			download:   visible[4].el,
		})
	}
	return catalog
}

// cleanHeader keeps the text after the last tag, as the header cell nests an icon before it
func cleanHeader(title string) string {
	if i := strings.LastIndex(title, ">"); i >= 0 {
		title = title[i+1:]
	}
	return strings.TrimSpace(title)
}
