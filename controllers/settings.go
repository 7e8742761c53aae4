package controllers

import (
	"errors"
	"net/http"

	"go-storefront/notify"
	"go-storefront/payments"
	"go-storefront/services"
)

// SettingsController serves the site branding, the admin notice feed and payment onboarding
type SettingsController struct {
	SiteConfig *services.SiteConfig
	Onboarding *payments.Onboarding
	Notices    *notify.Feed
}

func NewSettingsController(siteConfig *services.SiteConfig, onboarding *payments.Onboarding, notices *notify.Feed) *SettingsController {
	return &SettingsController{SiteConfig: siteConfig, Onboarding: onboarding, Notices: notices}
}

func (sc *SettingsController) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sc.SiteConfig.Get())
}

// UpdateSettings changes any of siteName, storeLogo and navbarTheme (Admin only)
func (sc *SettingsController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch services.SettingsPatch
	if err := decode(r, &patch); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	settings, err := sc.SiteConfig.Update(r.Context(), patch)
	if err != nil {
		writeError(w, err, "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// StartPaymentOnboarding relays the onboarding link to the admin (Admin only)
func (sc *SettingsController) StartPaymentOnboarding(w http.ResponseWriter, r *http.Request) {
	link, err := sc.Onboarding.Start(r.Context())
	if errors.Is(err, payments.ErrNotConfigured) {
		http.Error(w, "Payment onboarding is not configured", http.StatusNotImplemented)
		return
	}
	if err != nil {
		sc.Notices.Error("Failed to start payment onboarding", err)
		http.Error(w, "Failed to start payment onboarding", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// GetNotices lists the most recent success and failure notices (Admin only)
func (sc *SettingsController) GetNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sc.Notices.Recent())
}
