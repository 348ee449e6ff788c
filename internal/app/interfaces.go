package app

import (
	"context"
	"time"

	"supportscraper/internal/coordinator"
	"supportscraper/internal/portal"
)

// Portal is the browser session the scraper drives
type Portal interface {
	// WaitForUserLogin restores or establishes an authenticated session
	WaitForUserLogin(ctx context.Context, timeout time.Duration) error
	// Catalog returns the releases listed on an update page
	Catalog(ctx context.Context, updateType string) (*portal.Catalog, error)
	// SetDownloadDir points browser downloads at dir
	SetDownloadDir(dir string) error
	// TriggerDownload starts the download of one release
	TriggerDownload(ctx context.Context, item portal.Item) error
}

// BatchWaiter blocks until triggered downloads settle
type BatchWaiter interface {
	AwaitBatch(ctx context.Context, batch coordinator.Batch) coordinator.Result
}

// Recorder collects batch outcomes
type Recorder interface {
	Record(label string, result coordinator.Result)
	RecordFailure(label string, err error)
}
