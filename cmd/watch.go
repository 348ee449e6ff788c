package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"supportscraper/internal/app"
	"supportscraper/internal/logging"
)

type WatchFlags struct {
	Dir      string
	Expected int
	Report   string
}

var watchFlags WatchFlags

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Wait for downloads in a directory to finish",
	Long: `Wait for browser downloads you started yourself. This will:

1. Poll the directory for files and .crdownload markers
2. Finish when --expect files are complete, or when nothing is in progress
   if --expect is 0
3. Give up when the files stop changing for too long

No browser is opened.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateWatchFlags(&watchFlags)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatchApp(&watchFlags); err != nil {
			logging.Critical(logger).Err(err).Msg("Watch failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.Dir, "dir", "d", "", "directory to watch (defaults to download.dir)")
	watchCmd.Flags().IntVarP(&watchFlags.Expected, "expect", "n", 0, "number of files to wait for")
	watchCmd.Flags().StringVar(&watchFlags.Report, "report", "", "write a YAML run report to this file")
}

// validateWatchFlags validates the watch command flags
func validateWatchFlags(flags *WatchFlags) error {
	if flags.Expected < 0 {
		return fmt.Errorf("--expect must not be negative")
	}
	return nil
}

// runWatchApp creates and runs the watch application
func runWatchApp(flags *WatchFlags) error {
	ctx := createContext()
	svc := createServices()

	opts := &app.WatchOptions{
		Dir:      flags.Dir,
		Expected: flags.Expected,
	}
	if opts.Dir == "" {
		opts.Dir = cfg.Download.Dir
	}

	watchApp := app.NewWatchApp(cfg, svc.coordinator, svc.summary, logger)
	err := watchApp.Run(ctx, opts)
	svc.finish(flags.Report)
	return err
}
