package portal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cells(version, date string) []gridCell {
	return []gridCell{
		{HTML: ""},
		{Style: "display: none", HTML: "hidden-id"},
		{HTML: version},
		{HTML: date},
		{HTML: "Release Notes"},
		{HTML: "Download"},
	}
}

func TestBuildCatalogGroupsRowsBySection(t *testing.T) {
	rows := []gridRow{
		{Class: "k-grouping-row", Title: `<span class="k-icon"></span>Apps`},
		{Cells: cells("8290-6035", "2020/06/02 17:01:26")},
		{Cells: cells("8289-6030", "2020/05/29 10:12:40")},
		{Class: "k-grouping-row k-alt", Title: "WF-500 Content"},
		{Cells: cells("537-3044", "2020/06/01 09:00:00")},
		{Cells: []gridCell{{HTML: "too"}, {HTML: "short"}}},
	}

	catalog := buildCatalog("Dynamic", 1, rows)

	assert.Equal(t, []string{"Apps", "WF-500 Content"}, catalog.Sections())

	apps, err := catalog.Releases("Apps")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "8290-6035", apps[0].Version)
	assert.Equal(t, "2020/06/02 17:01:26", apps[0].Date)
	assert.Equal(t, "Dynamic", apps[0].UpdateType)
	assert.Equal(t, 1, apps[0].generation)

	wf, err := catalog.Releases("WF-500 Content")
	require.NoError(t, err)
	assert.Len(t, wf, 1)
}

func TestBuildCatalogRowsBeforeHeader(t *testing.T) {
	catalog := buildCatalog("Software", 1, []gridRow{{Cells: cells("9.1.0", "2019/12/01")}})

	releases, err := catalog.Releases(headerPlaceholder)
	require.NoError(t, err)
	assert.Len(t, releases, 1)
}

func TestCatalogUnknownSection(t *testing.T) {
	_, err := NewCatalog("Software").Releases("PAN-OS for PA-9999")
	assert.True(t, errors.Is(err, ErrUnknownSection))
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name     string
		releases []Release
		want     string
	}{
		{
			name: "newest date wins",
			releases: []Release{
				{Version: "9.0.1", Date: "2019/05/01 10:00:00"},
				{Version: "9.0.3", Date: "2019/07/01 10:00:00"},
				{Version: "9.0.2", Date: "2019/06/01 10:00:00"},
			},
			want: "9.0.3",
		},
		{
			name: "same date falls back to semver",
			releases: []Release{
				{Version: "10.0.2", Date: "2020/01/10"},
				{Version: "10.0.10", Date: "2020/01/10"},
			},
			want: "10.0.10",
		},
		{
			name: "unparseable dates compare as strings",
			releases: []Release{
				{Version: "a", Date: "June 1"},
				{Version: "b", Date: "July 1"},
			},
			want: "a",
		},
		{
			name: "us date layout",
			releases: []Release{
				{Version: "1", Date: "12/31/2019"},
				{Version: "2", Date: "01/02/2020"},
			},
			want: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Latest(tt.releases)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Version)
		})
	}

	_, ok := Latest(nil)
	assert.False(t, ok)
}

func TestCatalogSelect(t *testing.T) {
	catalog := NewCatalog("Software")
	catalog.Add(Release{Section: "Panorama M Images", Version: "9.1.0", Date: "2019/12/10"})
	catalog.Add(Release{Section: "Panorama M Images", Version: "9.1.1", Date: "2020/01/20"})

	latest, err := catalog.Select("Panorama M Images", false)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "9.1.1", latest[0].Version)

	all, err := catalog.Select("Panorama M Images", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSortNewestFirst(t *testing.T) {
	releases := []Release{
		{Version: "1", Date: "2020/01/01"},
		{Version: "3", Date: "2020/03/01"},
		{Version: "2", Date: "2020/02/01"},
	}
	SortNewestFirst(releases)
	assert.Equal(t, "3", releases[0].Version)
	assert.Equal(t, "1", releases[2].Version)
}

func TestNotesFileName(t *testing.T) {
	r := Release{UpdateType: "Software", Section: "GlobalProtect Agent Bundle", Version: "5.1.3"}
	assert.Equal(t, "Updates_Software_GlobalProtect Agent Bundle_5.1.3.html", r.NotesFileName())
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "Apps", cleanHeader(`<span class="k-icon k-i-collapse"></span> Apps `))
	assert.Equal(t, "Apps", cleanHeader("Apps"))
}
