package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"supportscraper/internal/config"
	"supportscraper/internal/logging"
	"supportscraper/internal/portal"
)

// CatalogApp logs in and lists the releases of one update page
type CatalogApp struct {
	config  *config.Config
	portal  Portal
	show    func(*portal.Catalog)
	logger  zerolog.Logger
	onLogin func()
}

// NewCatalogApp creates a new catalog application; show renders the parsed page
func NewCatalogApp(cfg *config.Config, p Portal, show func(*portal.Catalog), logger zerolog.Logger) *CatalogApp {
	return &CatalogApp{
		config: cfg,
		portal: p,
		show:   show,
		logger: logging.Component(logger, "catalog"),
	}
}

// OnLogin registers a hook run before waiting for the operator to log in
func (c *CatalogApp) OnLogin(fn func()) {
	c.onLogin = fn
}

// Run prints the catalog of updateType
func (c *CatalogApp) Run(ctx context.Context, updateType string) error {
	if updateType == "" {
		return fmt.Errorf("update type is required")
	}

	if c.onLogin != nil {
		c.onLogin()
	}
	if err := c.portal.WaitForUserLogin(ctx, c.config.Portal.LoginTimeout()); err != nil {
		logging.Critical(c.logger).Err(err).Msg("Login failed")
		return fmt.Errorf("failed to log in: %w", err)
	}

	catalog, err := c.portal.Catalog(ctx, updateType)
	if err != nil {
		return fmt.Errorf("failed to load %s catalog: %w", updateType, err)
	}
	c.show(catalog)
	return nil
}
