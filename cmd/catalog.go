package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"supportscraper/internal/app"
	"supportscraper/internal/logging"
	"supportscraper/internal/portal"
)

var catalogType string

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the sections and releases of an update page",
	Long: `Log in and print every section of an update page with its releases,
newest first. Section names printed here are the ones batches refer to.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCatalogApp(catalogType); err != nil {
			logging.Critical(logger).Err(err).Msg("Catalog failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().StringVarP(&catalogType, "type", "t", "Software", "update type: Software or Dynamic")
}

// runCatalogApp opens the browser and prints one update page
func runCatalogApp(updateType string) error {
	ctx := createContext()
	console := createServices().console

	session, err := portal.Open(ctx, cfg, logging.Component(logger, "portal"))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing browser")
		}
	}()

	catalogApp := app.NewCatalogApp(cfg, session, console.ShowCatalog, logger)
	catalogApp.OnLogin(func() {
		console.ShowLoginInstructions(cfg.Portal.LoginTimeout())
	})
	return catalogApp.Run(ctx, updateType)
}
