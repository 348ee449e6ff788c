package app

import (
	"supportscraper/internal/config"
	"supportscraper/internal/coordinator"
)

// batchFor carries the configured wait tunables into a coordinator batch
func batchFor(cfg config.DownloadConfig, label, dir string) coordinator.Batch {
	return coordinator.Batch{
		Label:              label,
		Dir:                dir,
		PollInterval:       cfg.PollInterval,
		MaxNoProgressPolls: cfg.MaxNoProgressPolls,
		MaxListRetries:     cfg.MaxListRetries,
		Deadline:           cfg.BatchTimeout,
	}
}
