package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go-storefront/broadcast"
	"go-storefront/cache"
	"go-storefront/errs"
	"go-storefront/models"
	"go-storefront/notify"
	"go-storefront/store"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultSiteName = "My Store"

	siteDocID   = "site"
	navbarDocID = "navbar"
)

// SettingsPatch holds the settings fields to change; nil fields are kept.
type SettingsPatch struct {
	SiteName    *string `json:"siteName"`
	StoreLogo   *string `json:"storeLogo"`
	NavbarTheme *string `json:"navbarTheme"`
}

// SiteConfig holds the storefront branding. Reads are served from memory, seeded from the
// local cache at construction and replaced by Refresh. Every change is written to the store,
// the cache and the broadcaster; changes broadcast by other instances are applied locally.
type SiteConfig struct {
	site     store.Collection[models.SiteDocument]
	navbar   store.Collection[models.NavbarDocument]
	cache    *cache.Cache
	bus      broadcast.Broadcaster
	notifier notify.Notifier
	logger   zerolog.Logger

	mu          sync.RWMutex
	settings    models.SiteSettings
	unsubscribe func()
}

func NewSiteConfig(site store.Collection[models.SiteDocument], navbar store.Collection[models.NavbarDocument], c *cache.Cache, bus broadcast.Broadcaster, notifier notify.Notifier, logger zerolog.Logger) *SiteConfig {
	sc := &SiteConfig{
		site:     site,
		navbar:   navbar,
		cache:    c,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
		settings: models.SiteSettings{SiteName: DefaultSiteName, NavbarTheme: models.DefaultNavbarTheme},
	}
	if cached, ok := c.SiteSettings(); ok {
		sc.settings = normalizeSettings(cached)
	}
	return sc
}

// Start applies settings broadcast by other instances.
func (sc *SiteConfig) Start() error {
	if sc.bus == nil {
		return nil
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.unsubscribe != nil {
		return nil
	}
	unsubscribe, err := sc.bus.Subscribe(sc.applyRemote)
	if err != nil {
		return err
	}
	sc.unsubscribe = unsubscribe
	return nil
}

func (sc *SiteConfig) Close() {
	sc.mu.Lock()
	unsubscribe := sc.unsubscribe
	sc.unsubscribe = nil
	sc.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (sc *SiteConfig) applyRemote(s models.SiteSettings) {
	s = normalizeSettings(s)
	sc.mu.Lock()
	sc.settings = s
	sc.mu.Unlock()
	if err := sc.cache.PutSiteSettings(s); err != nil {
		sc.logger.Warn().Err(err).Msg("failed to cache broadcast settings")
	}
}

func (sc *SiteConfig) Get() models.SiteSettings {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.settings
}

// Refresh reloads the settings documents. Failures are not reported: the site name keeps its
// current value and the theme falls back to the default.
func (sc *SiteConfig) Refresh(ctx context.Context) {
	next := sc.Get()

	site, err := sc.site.Get(ctx, siteDocID)
	switch {
	case err == nil:
		if site.SiteName != "" {
			next.SiteName = site.SiteName
		}
		next.StoreLogo = site.StoreLogo
	case !errors.Is(err, store.ErrNotFound):
		sc.logger.Debug().Err(err).Msg("failed to load site settings")
	}

	nav, err := sc.navbar.Get(ctx, navbarDocID)
	if theme, perr := models.ParseNavbarTheme(string(nav.Theme)); err == nil && perr == nil {
		next.NavbarTheme = theme
	} else {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			sc.logger.Debug().Err(err).Msg("failed to load navbar theme")
		}
		next.NavbarTheme = models.DefaultNavbarTheme
	}

	sc.mu.Lock()
	sc.settings = next
	sc.mu.Unlock()
	if err := sc.cache.PutSiteSettings(next); err != nil {
		sc.logger.Warn().Err(err).Msg("failed to cache site settings")
	}
}

// Update writes the changed fields remotely, then caches and broadcasts the full settings.
func (sc *SiteConfig) Update(ctx context.Context, patch SettingsPatch) (models.SiteSettings, error) {
	const op = "settings.update"
	next := sc.Get()

	if patch.NavbarTheme != nil {
		theme, err := models.ParseNavbarTheme(*patch.NavbarTheme)
		if err != nil {
			return next, errs.E(errs.KindInvalid, op, "Unknown navbar theme", err)
		}
		next.NavbarTheme = theme
	}
	if patch.SiteName != nil {
		name := strings.TrimSpace(*patch.SiteName)
		if name == "" {
			return next, errs.E(errs.KindInvalid, op, "Site name is required", nil)
		}
		next.SiteName = name
	}
	if patch.StoreLogo != nil {
		next.StoreLogo = *patch.StoreLogo
	}

	if patch.SiteName != nil || patch.StoreLogo != nil {
		if err := sc.writeSite(ctx, next); err != nil {
			sc.notifier.Error("Failed to save site settings", err)
			return sc.Get(), errs.E(errs.KindUnavailable, op, "Failed to save site settings", err)
		}
	}
	if patch.NavbarTheme != nil {
		if err := sc.navbar.Put(ctx, navbarDocID, models.NavbarDocument{ID: navbarDocID, Theme: next.NavbarTheme}); err != nil {
			sc.notifier.Error("Failed to save navbar theme", err)
			return sc.Get(), errs.E(errs.KindUnavailable, op, "Failed to save navbar theme", err)
		}
	}

	sc.mu.Lock()
	sc.settings = next
	sc.mu.Unlock()
	if err := sc.cache.PutSiteSettings(next); err != nil {
		sc.logger.Warn().Err(err).Msg("failed to cache site settings")
	}
	if sc.bus != nil {
		if err := sc.bus.Publish(next); err != nil {
			sc.logger.Warn().Err(err).Msg("failed to broadcast site settings")
		}
	}
	sc.notifier.Success("Settings saved")
	return next, nil
}

// writeSite merges into settings/site, creating the document on first save.
func (sc *SiteConfig) writeSite(ctx context.Context, s models.SiteSettings) error {
	err := sc.site.Merge(ctx, siteDocID, bson.M{"site_name": s.SiteName, "store_logo": s.StoreLogo})
	if errors.Is(err, store.ErrNotFound) {
		return sc.site.Put(ctx, siteDocID, models.SiteDocument{ID: siteDocID, SiteName: s.SiteName, StoreLogo: s.StoreLogo})
	}
	return err
}

func (sc *SiteConfig) SetSiteName(ctx context.Context, name string) error {
	_, err := sc.Update(ctx, SettingsPatch{SiteName: &name})
	return err
}

func (sc *SiteConfig) SetStoreLogo(ctx context.Context, logo string) error {
	_, err := sc.Update(ctx, SettingsPatch{StoreLogo: &logo})
	return err
}

func (sc *SiteConfig) SetNavbarTheme(ctx context.Context, theme string) error {
	_, err := sc.Update(ctx, SettingsPatch{NavbarTheme: &theme})
	return err
}

// LastRoute returns the saved navigation position. Admin sessions are never restored.
func (sc *SiteConfig) LastRoute(user *models.User) string {
	if user == nil || user.IsAdmin() {
		return ""
	}
	return sc.cache.LastRoute(user.ID)
}

func (sc *SiteConfig) SetLastRoute(user *models.User, route string) error {
	if user == nil || user.IsAdmin() {
		return nil
	}
	if !strings.HasPrefix(route, "/") {
		return errs.E(errs.KindInvalid, "settings.last_route", "Route must be an absolute path", nil)
	}
	return sc.cache.SetLastRoute(user.ID, route)
}

func normalizeSettings(s models.SiteSettings) models.SiteSettings {
	if strings.TrimSpace(s.SiteName) == "" {
		s.SiteName = DefaultSiteName
	}
	if _, err := models.ParseNavbarTheme(string(s.NavbarTheme)); err != nil {
		s.NavbarTheme = models.DefaultNavbarTheme
	}
	return s
}
