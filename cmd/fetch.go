package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"supportscraper/internal/app"
	"supportscraper/internal/config"
	"supportscraper/internal/logging"
	"supportscraper/internal/portal"
)

type FetchFlags struct {
	UpdateType string
	Section    string
	All        bool
	Notes      bool
	Expected   int
	Report     string
}

var fetchFlags FetchFlags

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download releases and wait for every batch to finish",
	Long: `Download releases from the support portal. This will:

1. Open the browser and restore the saved session, or wait for you to log in
2. For each batch, open its update page and pick the latest release (or all of them)
3. Click the downloads and wait until the files are complete or stalled
4. Print a summary of every batch

Without --type and --section the batches from the config file are used.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFetchFlags(&fetchFlags)
	},
	Run: func(cmd *cobra.Command, args []string) {
		batches := cfg.Batches
		if fetchFlags.Section != "" {
			batch := config.BatchConfig{
				UpdateType: fetchFlags.UpdateType,
				Section:    fetchFlags.Section,
				All:        fetchFlags.All,
				Notes:      fetchFlags.Notes,
			}
			if cmd.Flags().Changed("expect") {
				batch.Expected = &fetchFlags.Expected
			}
			batches = []config.BatchConfig{batch}
		}

		if err := runScraperApp(batches, fetchFlags.Report); err != nil {
			logging.Critical(logger).Err(err).Msg("Fetch failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFlags.UpdateType, "type", "t", "", "update type of a single batch: Software or Dynamic")
	fetchCmd.Flags().StringVarP(&fetchFlags.Section, "section", "s", "", "section header of a single batch")
	fetchCmd.Flags().BoolVar(&fetchFlags.All, "all", false, "download every release of the section, not only the latest")
	fetchCmd.Flags().BoolVar(&fetchFlags.Notes, "notes", false, "save release notes instead of the release files")
	fetchCmd.Flags().IntVar(&fetchFlags.Expected, "expect", 0, "number of files to wait for; 0 waits until nothing is in progress")
	fetchCmd.Flags().StringVar(&fetchFlags.Report, "report", "", "write a YAML run report to this file")
}

// validateFetchFlags validates the fetch command flags
func validateFetchFlags(flags *FetchFlags) error {
	if (flags.UpdateType == "") != (flags.Section == "") {
		return fmt.Errorf("--type and --section must be given together")
	}
	if flags.Section == "" && (flags.All || flags.Notes) {
		return fmt.Errorf("--all and --notes require --type and --section")
	}
	if flags.Expected < 0 {
		return fmt.Errorf("--expect must not be negative")
	}
	return nil
}

// runScraperApp opens the browser and runs the batches
func runScraperApp(batches []config.BatchConfig, reportPath string) error {
	ctx := createContext()
	svc := createServices()

	session, err := portal.Open(ctx, cfg, logging.Component(logger, "portal"))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing browser")
		}
	}()

	scraper := app.NewScraperApp(cfg, session, svc.coordinator, svc.tracker, svc.summary, logger)
	scraper.OnLogin(func() {
		svc.console.ShowLoginInstructions(cfg.Portal.LoginTimeout())
	})

	err = scraper.Run(ctx, &app.ScraperOptions{Batches: batches})
	svc.finish(reportPath)
	return err
}
