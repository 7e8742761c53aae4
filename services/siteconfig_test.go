package services

import (
	"context"
	"testing"

	"go-storefront/broadcast"
	"go-storefront/errs"
	"go-storefront/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSiteConfig(t *testing.T, bus broadcast.Broadcaster) *SiteConfig {
	t.Helper()
	d := newTestDB(t)
	return NewSiteConfig(d.SiteDocs, d.NavbarDocs, newTestCache(t), bus, &recordingNotifier{}, zerolog.Nop())
}

func TestSiteConfigDefaults(t *testing.T) {
	sc := newTestSiteConfig(t, nil)
	s := sc.Get()
	assert.Equal(t, DefaultSiteName, s.SiteName)
	assert.Equal(t, models.DefaultNavbarTheme, s.NavbarTheme)
	assert.Empty(t, s.StoreLogo)
}

func TestSiteConfigReloadsFromCache(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	c := newTestCache(t)

	first := NewSiteConfig(db.SiteDocs, db.NavbarDocs, c, nil, &recordingNotifier{}, zerolog.Nop())
	name, logo, theme := "Knits & Purls", "aGVsbG8=", "pastel"
	_, err := first.Update(ctx, SettingsPatch{SiteName: &name, StoreLogo: &logo, NavbarTheme: &theme})
	require.NoError(t, err)

	second := NewSiteConfig(db.SiteDocs, db.NavbarDocs, c, nil, &recordingNotifier{}, zerolog.Nop())
	assert.Equal(t, models.SiteSettings{SiteName: name, StoreLogo: logo, NavbarTheme: models.ThemePastel}, second.Get())
}

func TestSiteConfigIgnoresInvalidCache(t *testing.T) {
	db := newTestDB(t)
	c := newTestCache(t)
	require.NoError(t, c.PutRawSiteSettings([]byte("{not json")))

	sc := NewSiteConfig(db.SiteDocs, db.NavbarDocs, c, nil, &recordingNotifier{}, zerolog.Nop())
	assert.Equal(t, DefaultSiteName, sc.Get().SiteName)
	assert.Equal(t, models.DefaultNavbarTheme, sc.Get().NavbarTheme)
}

func TestSiteConfigRefresh(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SiteDocs.Put(ctx, "site", models.SiteDocument{ID: "site", SiteName: "Remote Shop", StoreLogo: "bG9nbw=="}))
	require.NoError(t, db.NavbarDocs.Put(ctx, "navbar", models.NavbarDocument{ID: "navbar", Theme: models.ThemeIndigo}))

	sc := NewSiteConfig(db.SiteDocs, db.NavbarDocs, newTestCache(t), nil, &recordingNotifier{}, zerolog.Nop())
	sc.Refresh(ctx)
	assert.Equal(t, models.SiteSettings{SiteName: "Remote Shop", StoreLogo: "bG9nbw==", NavbarTheme: models.ThemeIndigo}, sc.Get())
}

func TestSiteConfigRefreshFailureFallsBackToDefaultTheme(t *testing.T) {
	db := newTestDB(t)
	c := newTestCache(t)
	require.NoError(t, c.PutSiteSettings(models.SiteSettings{SiteName: "Cached", NavbarTheme: models.ThemeDark}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := NewSiteConfig(db.SiteDocs, db.NavbarDocs, c, nil, &recordingNotifier{}, zerolog.Nop())
	require.Equal(t, models.ThemeDark, sc.Get().NavbarTheme)
	sc.Refresh(ctx)
	assert.Equal(t, "Cached", sc.Get().SiteName)
	assert.Equal(t, models.DefaultNavbarTheme, sc.Get().NavbarTheme)
}

func TestSiteConfigRejectsUnknownTheme(t *testing.T) {
	sc := newTestSiteConfig(t, nil)
	err := sc.SetNavbarTheme(context.Background(), "neon")
	assert.True(t, errs.Is(err, errs.KindInvalid))
	assert.Equal(t, models.DefaultNavbarTheme, sc.Get().NavbarTheme)
}

func TestSiteConfigBroadcastAcrossInstances(t *testing.T) {
	ctx := context.Background()
	hub := broadcast.NewHub()
	db := newTestDB(t)

	a := NewSiteConfig(db.SiteDocs, db.NavbarDocs, newTestCache(t), hub.Endpoint(), &recordingNotifier{}, zerolog.Nop())
	bCache := newTestCache(t)
	b := NewSiteConfig(db.SiteDocs, db.NavbarDocs, bCache, hub.Endpoint(), &recordingNotifier{}, zerolog.Nop())
	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SetSiteName(ctx, "Shared Name"))
	assert.Equal(t, "Shared Name", b.Get().SiteName)

	cached, ok := bCache.SiteSettings()
	require.True(t, ok)
	assert.Equal(t, "Shared Name", cached.SiteName)
}

func TestLastRouteOnlyForCustomers(t *testing.T) {
	sc := newTestSiteConfig(t, nil)
	customer := &models.User{ID: "u1", Role: models.RoleCustomer}
	admin := &models.User{ID: "u2", Role: models.RoleAdmin}

	require.NoError(t, sc.SetLastRoute(customer, "/products/p1"))
	require.NoError(t, sc.SetLastRoute(admin, "/admin/orders"))

	assert.Equal(t, "/products/p1", sc.LastRoute(customer))
	assert.Empty(t, sc.LastRoute(admin))
	assert.Empty(t, sc.LastRoute(nil))
	assert.True(t, errs.Is(sc.SetLastRoute(customer, "relative"), errs.KindInvalid))
}
