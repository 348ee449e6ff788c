package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrInvalidDownloadDir      = errors.New("download directory must be set")
	ErrInvalidPollInterval     = errors.New("poll interval must be greater than 0")
	ErrInvalidNoProgressPolls  = errors.New("max no-progress polls must be greater than 0")
	ErrInvalidListRetries      = errors.New("max list retries must be greater than 0")
	ErrInvalidLoginTimeout     = errors.New("login timeout must be greater than 0")
	ErrInvalidTransientSuffix  = errors.New("at least one non-empty transient suffix is required")
	ErrInvalidPlaceholder      = errors.New("placeholder pattern is malformed")
	ErrInvalidPortalURL        = errors.New("portal base URL and login URL must be set")
	ErrInvalidLoggingFormat    = errors.New("logging format must be console or json")
	ErrInvalidBatch            = errors.New("batch requires update_type and section")
	ErrInvalidBatchExpectation = errors.New("batch expected count must not be negative")
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "SUPPORTSCRAPER"

// Config holds all application configuration
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Portal   PortalConfig   `mapstructure:"portal" yaml:"portal"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Batches  []BatchConfig  `mapstructure:"batches" yaml:"batches"`
}

// BrowserConfig holds browser launch configuration
type BrowserConfig struct {
	BinaryLocation string `mapstructure:"binary_location" yaml:"binary_location"`
	DriverPath     string `mapstructure:"driver_path" yaml:"driver_path"` // DevTools URL of an already running browser
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	UserDataDir    string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// PortalConfig holds support portal endpoints and login behavior
type PortalConfig struct {
	BaseURL             string        `mapstructure:"base_url" yaml:"base_url"`
	LoginURL            string        `mapstructure:"login_url" yaml:"login_url"`
	LoginTimeoutSeconds int           `mapstructure:"login_timeout_seconds" yaml:"login_timeout_seconds"`
	CookieFile          string        `mapstructure:"cookie_file" yaml:"cookie_file"`
	ClickRetries        int           `mapstructure:"click_retries" yaml:"click_retries"`
	ClickRetryDelay     time.Duration `mapstructure:"click_retry_delay" yaml:"click_retry_delay"`
}

// DownloadConfig holds download directory and completion detection settings
type DownloadConfig struct {
	Dir                string        `mapstructure:"dir" yaml:"dir"`
	TransientSuffixes  []string      `mapstructure:"transient_suffixes" yaml:"transient_suffixes"`
	PlaceholderNames   []string      `mapstructure:"placeholder_patterns" yaml:"placeholder_patterns"` // temporary names, not reported as abandoned
	IncludeHidden      bool          `mapstructure:"include_hidden" yaml:"include_hidden"`
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxNoProgressPolls int           `mapstructure:"max_no_progress_polls" yaml:"max_no_progress_polls"`
	MaxListRetries     int           `mapstructure:"max_list_retries" yaml:"max_list_retries"`
	BatchTimeout       time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	MinFreeBytes       uint64        `mapstructure:"min_free_bytes" yaml:"min_free_bytes"`
	Progress           bool          `mapstructure:"progress" yaml:"progress"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BatchConfig describes one group of downloads from an update page section
type BatchConfig struct {
	UpdateType string `mapstructure:"update_type" yaml:"update_type"` // Dynamic or Software
	Section    string `mapstructure:"section" yaml:"section"`
	All        bool   `mapstructure:"all" yaml:"all"`             // every release instead of the latest
	Notes      bool   `mapstructure:"notes" yaml:"notes"`         // release notes instead of raw files
	Expected   *int   `mapstructure:"expected" yaml:"expected"`   // override; 0 means unknown
}

// Label identifies the batch in logs and reports
func (b BatchConfig) Label() string {
	kind := "files"
	if b.Notes {
		kind = "notes"
	}
	scope := "latest"
	if b.All {
		scope = "all"
	}
	return fmt.Sprintf("%s/%s (%s %s)", b.UpdateType, b.Section, scope, kind)
}

// LoginTimeout returns the configured login wait as a duration
func (p PortalConfig) LoginTimeout() time.Duration {
	return time.Duration(p.LoginTimeoutSeconds) * time.Second
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{},
		Portal: PortalConfig{
			BaseURL:             "https://support.paloaltonetworks.com",
			LoginURL:            "https://identity.paloaltonetworks.com/idp/startSSO.ping?PartnerSpId=supportCSP&TargetResource=https://support.paloaltonetworks.com",
			LoginTimeoutSeconds: 60,
			CookieFile:          "cookies.json",
			ClickRetries:        50,
			ClickRetryDelay:     200 * time.Millisecond,
		},
		Download: DownloadConfig{
			Dir:                "contentpacks",
			TransientSuffixes:  []string{".crdownload"},
			PlaceholderNames:   []string{"Unconfirmed *"},
			PollInterval:       2 * time.Second,
			MaxNoProgressPolls: 30,
			MaxListRetries:     3,
			BatchTimeout:       30 * time.Minute,
			MinFreeBytes:       1 << 30, // 1 GiB
			Progress:           true,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "console",
		},
		Batches: DefaultBatches(),
	}
}

// DefaultBatches returns the latest raw downloads for the common content and PAN-OS sections
func DefaultBatches() []BatchConfig {
	batches := []BatchConfig{
		{UpdateType: "Dynamic", Section: "Apps"},
		{UpdateType: "Dynamic", Section: "WF-500 Content"},
	}
	for _, section := range []string{
		"PAN-OS for the PA-200 Platform",
		"PAN-OS for the PA-220 Platform",
		"PAN-OS for the PA-500 Platform",
		"PAN-OS for the PA-800 Platform",
		"PAN-OS for the PA-2000 Platform",
		"PAN-OS for the PA-3000 Platform",
		"PAN-OS for the PA-3200 Platform",
		"PAN-OS for the PA-4000 Platform",
		"PAN-OS for the PA-5000 Platform",
		"PAN-OS for the PA-5200 Platform",
		"PAN-OS for the PA-7000 Platform",
		"PAN-OS for the PA-7000b Platform",
		"PAN-OS for VM-Series",
		"PAN-OS for VM-Series Base Images",
		"PAN-OS for VM-Series NSX Base Images",
		"PAN-OS for VM-Series SDX Base Images",
		"PAN-OS for VM-Series KVM Base Images",
		"PAN-OS for VM-Series Hyper-V Base Image",
		"GlobalProtect Agent Bundle",
		"Panorama M Images",
		"WF-500 Appliance Updates",
	} {
		batches = append(batches, BatchConfig{UpdateType: "Software", Section: section})
	}
	return batches
}

// Load builds the configuration from defaults, the config file and environment held by v.
// Keys are registered as defaults so SUPPORTSCRAPER_* variables override nested values.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	RegisterDefaults(v, cfg)

	// Lists are decoded onto the existing slices element by element; start empty
	// so a shorter list from the file does not keep trailing defaults.
	cfg.Download.TransientSuffixes = nil
	cfg.Download.PlaceholderNames = nil
	if v.IsSet("batches") {
		cfg.Batches = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RegisterDefaults teaches v every scalar key of cfg and enables env lookup.
func RegisterDefaults(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"browser.binary_location":        cfg.Browser.BinaryLocation,
		"browser.driver_path":            cfg.Browser.DriverPath,
		"browser.headless":               cfg.Browser.Headless,
		"browser.user_data_dir":          cfg.Browser.UserDataDir,
		"portal.base_url":                cfg.Portal.BaseURL,
		"portal.login_url":               cfg.Portal.LoginURL,
		"portal.login_timeout_seconds":   cfg.Portal.LoginTimeoutSeconds,
		"portal.cookie_file":             cfg.Portal.CookieFile,
		"portal.click_retries":           cfg.Portal.ClickRetries,
		"portal.click_retry_delay":       cfg.Portal.ClickRetryDelay,
		"download.dir":                   cfg.Download.Dir,
		"download.transient_suffixes":    cfg.Download.TransientSuffixes,
		"download.placeholder_patterns":  cfg.Download.PlaceholderNames,
		"download.include_hidden":        cfg.Download.IncludeHidden,
		"download.poll_interval":         cfg.Download.PollInterval,
		"download.max_no_progress_polls": cfg.Download.MaxNoProgressPolls,
		"download.max_list_retries":      cfg.Download.MaxListRetries,
		"download.batch_timeout":         cfg.Download.BatchTimeout,
		"download.min_free_bytes":        cfg.Download.MinFreeBytes,
		"download.progress":              cfg.Download.Progress,
		"logging.level":                  cfg.Logging.Level,
		"logging.format":                 cfg.Logging.Format,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Download.Dir == "" {
		return ErrInvalidDownloadDir
	}
	if c.Download.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Download.MaxNoProgressPolls <= 0 {
		return ErrInvalidNoProgressPolls
	}
	if c.Download.MaxListRetries <= 0 {
		return ErrInvalidListRetries
	}
	if !hasSuffix(c.Download.TransientSuffixes) {
		return ErrInvalidTransientSuffix
	}
	for _, pattern := range c.Download.PlaceholderNames {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPlaceholder, pattern)
		}
	}
	if c.Portal.LoginTimeoutSeconds <= 0 {
		return ErrInvalidLoginTimeout
	}
	if c.Portal.BaseURL == "" || c.Portal.LoginURL == "" {
		return ErrInvalidPortalURL
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return ErrInvalidLoggingFormat
	}
	for i, b := range c.Batches {
		if b.UpdateType == "" || b.Section == "" {
			return fmt.Errorf("batch %d: %w", i, ErrInvalidBatch)
		}
		if b.Expected != nil && *b.Expected < 0 {
			return fmt.Errorf("batch %d: %w", i, ErrInvalidBatchExpectation)
		}
	}
	return nil
}

func hasSuffix(suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" {
			return true
		}
	}
	return false
}
