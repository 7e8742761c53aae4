// Package payments talks to the payment-account onboarding endpoint used by the admin
// settings screen. Payment processing itself is out of scope.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-storefront/models"
)

var ErrNotConfigured = errors.New("payment onboarding endpoint is not configured")

type Onboarding struct {
	URL    string
	Client *http.Client
}

func NewOnboarding(url string) *Onboarding {
	return &Onboarding{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

// Start asks the endpoint for an onboarding link. The request has no body.
func (o *Onboarding) Start(ctx context.Context) (models.OnboardingLink, error) {
	var link models.OnboardingLink
	if o.URL == "" {
		return link, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, nil)
	if err != nil {
		return link, fmt.Errorf("build onboarding request: %w", err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return link, fmt.Errorf("onboarding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return link, fmt.Errorf("onboarding endpoint returned %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return link, fmt.Errorf("decode onboarding response: %w", err)
	}
	if link.URL == "" {
		return link, fmt.Errorf("onboarding response has no url")
	}
	return link, nil
}
