// Package portal drives the support portal in a real browser: login, update catalogs and download clicks.
package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"supportscraper/internal/config"
	"supportscraper/pkg/utils"
)

const (
	gridXPath    = `//*[@id="Grid"]/table/tbody`
	updatesPath  = "/Updates/%sUpdates/"
	loadTimeout  = 60 * time.Second
	popupTimeout = 30 * time.Second
)

// Session is a single browser tab logged into the portal
type Session struct {
	cfg    config.PortalConfig
	logger zerolog.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	downloadDir string
	updateType  string // update page currently loaded
	generation  int
	catalog     *Catalog
}

// Open launches or attaches to a browser and opens a blank tab
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		cfg:    cfg.Portal,
		logger: logger,
	}

	controlURL := cfg.Browser.DriverPath
	if controlURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(cfg.Browser.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("exclude-switches", "enable-automation")

		bin := cfg.Browser.BinaryLocation
		if bin == "" {
			bin, _ = launcher.LookPath()
		}
		if bin != "" {
			logger.Debug().Str("binary", bin).Msg("Using browser binary")
			l = l.Bin(bin)
		}
		if cfg.Browser.UserDataDir != "" {
			l = l.UserDataDir(cfg.Browser.UserDataDir)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.launcher = l
		controlURL = u
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		s.kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	return s, nil
}

// SetDownloadDir points browser downloads at dir
func (s *Session) SetDownloadDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve download directory: %w", err)
	}
	if abs == s.downloadDir {
		return nil
	}

	err = proto.PageSetDownloadBehavior{
		Behavior:     proto.PageSetDownloadBehaviorBehaviorAllow,
		DownloadPath: abs,
	}.Call(s.page)
	if err != nil {
		return fmt.Errorf("failed to set download directory: %w", err)
	}

	s.downloadDir = abs
	s.logger.Debug().Str("dir", abs).Msg("Download directory set")
	return nil
}

// NavigateTo loads url in the session tab and waits for the load event
func (s *Session) NavigateTo(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(loadTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	// any navigation invalidates element handles of the parsed grid
	s.updateType = ""
	s.catalog = nil
	s.generation++
	return nil
}

// CurrentURL returns the address of the session tab
func (s *Session) CurrentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

// Catalog loads the update page of updateType and parses its release grid.
// The parsed catalog is reused while the page stays loaded.
func (s *Session) Catalog(ctx context.Context, updateType string) (*Catalog, error) {
	if s.catalog != nil && s.updateType == updateType {
		return s.catalog, nil
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + fmt.Sprintf(updatesPath, updateType)
	s.logger.Info().Str("type", updateType).Msg("Loading update page")
	if err := s.NavigateTo(ctx, url); err != nil {
		return nil, err
	}

	rows, err := s.readGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s update grid: %w", updateType, err)
	}

	catalog := buildCatalog(updateType, s.generation, rows)
	s.logger.Debug().
		Str("type", updateType).
		Int("rows", len(rows)).
		Int("sections", len(catalog.Sections())).
		Msg("Update grid parsed")

	s.updateType = updateType
	s.catalog = catalog
	return catalog, nil
}

func (s *Session) readGrid(ctx context.Context) ([]gridRow, error) {
	page := s.page.Context(ctx).Timeout(loadTimeout)

	tbody, err := page.ElementX(gridXPath)
	if err != nil {
		return nil, err
	}
	trs, err := tbody.ElementsX("./tr")
	if err != nil {
		return nil, err
	}

	rows := make([]gridRow, 0, len(trs))
	for _, tr := range trs {
		var row gridRow
		if class, err := tr.Attribute("class"); err == nil && class != nil {
			row.Class = *class
		}

		if strings.Contains(row.Class, "k-grouping-row") {
			p, err := tr.ElementX("./td/p")
			if err != nil {
				return nil, err
			}
			html, err := p.Property("innerHTML")
			if err != nil {
				return nil, err
			}
			row.Title = html.Str()
			rows = append(rows, row)
			continue
		}

		tds, err := tr.ElementsX("./td")
		if err != nil {
			return nil, err
		}
		for _, td := range tds {
			cell := gridCell{el: td}
			if style, err := td.Attribute("style"); err == nil && style != nil {
				cell.Style = *style
			}
			if html, err := td.Property("innerHTML"); err == nil {
				cell.HTML = html.Str()
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TriggerDownload clicks the download or notes cell of a release.
// Raw downloads are left to the browser; notes are saved from the popup they open.
func (s *Session) TriggerDownload(ctx context.Context, item Item) error {
	r := item.Release
	el := r.download
	if item.Notes {
		el = r.notes
	}
	if el == nil || r.generation != s.generation {
		return fmt.Errorf("%w: %s/%s %s", ErrStaleRelease, r.UpdateType, r.Section, r.Version)
	}

	if !item.Notes {
		if err := s.click(ctx, el); err != nil {
			return fmt.Errorf("failed to start download of %s: %w", r.Version, err)
		}
		s.logger.Info().Str("section", r.Section).Str("version", r.Version).Msg("Download requested")
		return nil
	}

	wait := s.page.Context(ctx).WaitOpen()
	if err := s.click(ctx, el); err != nil {
		return fmt.Errorf("failed to open notes of %s: %w", r.Version, err)
	}
	popup, err := wait()
	if err != nil {
		return fmt.Errorf("failed to open notes window of %s: %w", r.Version, err)
	}
	defer popup.Close()

	popup = popup.Context(ctx).Timeout(popupTimeout)
	if err := popup.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load notes of %s: %w", r.Version, err)
	}
	html, err := popup.HTML()
	if err != nil {
		return fmt.Errorf("failed to read notes of %s: %w", r.Version, err)
	}

	name := utils.SanitizeFileName(r.NotesFileName())
	if err := s.saveNotes(name, html); err != nil {
		return err
	}
	s.logger.Info().Str("file", name).Msg("Release notes saved")
	return nil
}

// saveNotes writes through a hidden temp file so a watcher never sees a partial page
func (s *Session) saveNotes(name, html string) error {
	dir := s.downloadDir
	if dir == "" {
		return errors.New("download directory not set")
	}

	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize notes: %w", err)
	}
	return nil
}

// click retries while another element covers the target, e.g. a loading overlay
func (s *Session) click(ctx context.Context, el *rod.Element) error {
	attempts := max(s.cfg.ClickRetries, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err == nil {
			return nil
		}

		var covered *rod.CoveredError
		if !errors.As(err, &covered) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt).Msg("Element covered, retrying click")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ClickRetryDelay):
		}
	}
	return fmt.Errorf("element still covered after %d attempts: %w", attempts, err)
}

// Close shuts the browser down
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if err != nil {
		s.kill()
	}
	return err
}

func (s *Session) kill() {
	if s.launcher != nil {
		s.launcher.Kill()
	}
}
