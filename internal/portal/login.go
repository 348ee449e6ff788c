package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"supportscraper/pkg/utils"
)

var ErrLoginTimeout = errors.New("timed out waiting for portal login")

// anonymousPath is where the portal lands visitors without a session
const anonymousPath = "/Support/Index"

const loginPollInterval = time.Second

// WaitForUserLogin restores saved cookies and opens the portal. Without a valid
// session it opens the SSO page and waits for the operator to sign in.
func (s *Session) WaitForUserLogin(ctx context.Context, timeout time.Duration) error {
	if err := s.restoreCookies(); err != nil {
		s.logger.Warn().Err(err).Msg("Could not restore cookies")
	}

	home := strings.TrimRight(s.cfg.BaseURL, "/") + "/"
	if err := s.NavigateTo(ctx, home); err != nil {
		return err
	}

	url, err := s.CurrentURL()
	if err != nil {
		return err
	}
	if s.isAuthenticated(url) {
		s.logger.Info().Msg("Session restored from cookies")
		return s.saveCookies()
	}

	s.logger.Info().Dur("timeout", timeout).Msg("Cookies expired or missing, please log in")
	if err := s.NavigateTo(ctx, s.cfg.LoginURL); err != nil {
		return err
	}

	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-loginCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrLoginTimeout
		case <-ticker.C:
		}

		url, err := s.CurrentURL()
		if err != nil {
			s.logger.Debug().Err(err).Msg("Page info unavailable during login")
			continue
		}
		if s.isAuthenticated(url) {
			s.logger.Info().Msg("Login detected")
			// the SSO redirect left this tab on a page the session did not load itself
			s.generation++
			s.catalog = nil
			s.updateType = ""
			return s.saveCookies()
		}
	}
}

func (s *Session) isAuthenticated(url string) bool {
	return isAuthenticatedURL(s.cfg.BaseURL, url)
}

// isAuthenticatedURL reports whether url is a portal page other than the anonymous landing page
func isAuthenticatedURL(baseURL, url string) bool {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(url, base+"/") && url != base {
		return false
	}
	path := strings.TrimPrefix(url, base)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return !strings.EqualFold(strings.TrimRight(path, "/"), anonymousPath)
}

func (s *Session) restoreCookies() error {
	if s.cfg.CookieFile == "" {
		return nil
	}

	cookies, err := utils.ReadJSONFile[[]*proto.NetworkCookie](s.cfg.CookieFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.browser.SetCookies(proto.CookiesToParams(cookies)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	s.logger.Debug().Int("count", len(cookies)).Msg("Cookies restored")
	return nil
}

func (s *Session) saveCookies() error {
	if s.cfg.CookieFile == "" {
		return nil
	}

	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}
	if err := utils.WriteJSONFile(s.cfg.CookieFile, cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	s.logger.Debug().Int("count", len(cookies)).Str("file", s.cfg.CookieFile).Msg("Cookies saved")
	return nil
}
