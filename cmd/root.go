package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"supportscraper/internal/config"
	"supportscraper/internal/coordinator"
	"supportscraper/internal/logging"
	"supportscraper/internal/reporter"
	"supportscraper/internal/tracker"
	"supportscraper/internal/ui"
)

var (
	cfg     *config.Config
	cfgFile string
	logger  = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "supportscraper",
	Short: "Fetch release files and notes from the vendor support portal",
	Long: `supportscraper drives a browser through the authenticated support portal,
requests release downloads and waits until the browser has finished writing them.

A batch is complete once the expected number of files sit in the download
directory without a .crdownload marker. A batch whose files stop changing for
too long is reported as stalled and the run moves on.

Usage:
  Fetch the configured batches:   supportscraper fetch
  Fetch one section:              supportscraper fetch --type Software --section "Panorama M Images"
  Wait for manual downloads:      supportscraper watch --dir ~/Downloads --expect 3
  List releases of a page:        supportscraper catalog --type Dynamic

Log in through the opened browser window when asked; the session cookies are
kept for the next run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()

		c, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		l, err := logging.New(os.Stderr, c.Logging.Level, c.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		cfg = c
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("Using config file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.supportscraper.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: CRITICAL, ERROR, WARNING, INFO or DEBUG")
	rootCmd.PersistentFlags().String("download-dir", "", "directory the browser downloads into")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("download.dir", rootCmd.PersistentFlags().Lookup("download-dir"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not find home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".supportscraper" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".supportscraper")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: could not read config file: %v\n", err)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}

// services are the components shared by every command
type services struct {
	tracker     *tracker.Tracker
	coordinator *coordinator.Coordinator
	progress    *ui.BatchProgress
	console     *ui.ConsoleUI
	summary     *reporter.Summary
}

// createServices creates and wires up all the application services
func createServices() *services {
	tr := tracker.New(tracker.Options{
		TransientSuffixes:   cfg.Download.TransientSuffixes,
		PlaceholderPatterns: cfg.Download.PlaceholderNames,
		IncludeHidden:       cfg.Download.IncludeHidden,
	})

	s := &services{
		tracker: tr,
		console: ui.NewConsoleUI(os.Stdout),
		summary: reporter.NewSummary(),
	}

	var opts []coordinator.Option
	if cfg.Download.Progress {
		s.progress = ui.NewBatchProgress(os.Stderr)
		opts = append(opts, coordinator.WithObserver(s.progress.Observe))
	}
	s.coordinator = coordinator.NewCoordinator(tr, logger, opts...)

	logger.Debug().Str("run", s.summary.RunID()).Msg("Services ready")
	return s
}

// finish closes the progress display and prints the run summary
func (s *services) finish(reportPath string) {
	if s.progress != nil {
		s.progress.Finish()
	}
	s.summary.Print(os.Stdout)

	if reportPath == "" {
		return
	}
	if err := s.summary.SaveYAML(reportPath); err != nil {
		logger.Error().Err(err).Msg("Could not write run report")
		return
	}
	logger.Info().Str("file", reportPath).Msg("Run report written")
}
