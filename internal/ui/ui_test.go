package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"supportscraper/internal/coordinator"
	"supportscraper/internal/portal"
)

func TestBatchProgressStartsBarPerBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewBatchProgress(&buf)

	p.Observe(coordinator.PollReport{BatchID: "one", Label: "Dynamic/Apps", Expected: 2, Stable: 1, Transient: 1, TotalBytes: 2048})
	assert.Contains(t, buf.String(), "Dynamic/Apps")
	assert.Equal(t, "one", p.batchID)

	p.Observe(coordinator.PollReport{BatchID: "two", Label: "Software/Panorama", Transient: 1})
	assert.Equal(t, "two", p.batchID)
	assert.Contains(t, buf.String(), "Software/Panorama")

	p.Finish()
	assert.Nil(t, p.bar)
	p.Finish()
}

func TestDescribe(t *testing.T) {
	got := describe(coordinator.PollReport{Label: "x", Stable: 3, Transient: 1, TotalBytes: 1536, NoProgressPolls: 2})
	assert.Equal(t, "x: 3 done, 1 active, 1.5 KiB (idle 2)", got)

	got = describe(coordinator.PollReport{Label: "x"})
	assert.Equal(t, "x: 0 done, 0 active, 0 B", got)
}

func TestShowCatalog(t *testing.T) {
	catalog := portal.NewCatalog("Software")
	catalog.Add(portal.Release{Section: "Panorama M Images", Version: "9.1.0", Date: "2019/12/10"})
	catalog.Add(portal.Release{Section: "Panorama M Images", Version: "9.1.1", Date: "2020/01/20"})
	catalog.Add(portal.Release{Section: "WF-500 Appliance Updates", Version: "9.0.0", Date: "2019/03/01"})

	var buf bytes.Buffer
	NewConsoleUI(&buf).ShowCatalog(catalog)
	out := buf.String()

	assert.Contains(t, out, "Software updates")
	assert.Contains(t, out, "Panorama M Images (2)")
	assert.Less(t, strings.Index(out, "9.1.1"), strings.Index(out, "9.1.0"))
	assert.Contains(t, out, "* 9.1.1")
	assert.Contains(t, out, "WF-500 Appliance Updates (1)")
}

func TestShowLoginInstructions(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleUI(&buf).ShowLoginInstructions(90 * time.Second)
	assert.Contains(t, buf.String(), "1m30s")
}
