package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go-storefront/auth"
	"go-storefront/cache"
	"go-storefront/controllers"
	"go-storefront/models"
	"go-storefront/notify"
	"go-storefront/payments"
	"go-storefront/policy"
	"go-storefront/services"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "owner@shop.test"

type testServer struct {
	router *mux.Router
	db     *store.Database
	orders *services.Orders
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := store.OpenMemory(store.NewMemoryStore())
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	logger := zerolog.Nop()
	notices := notify.NewFeed(10, logger)
	provider := auth.NewLocalProvider(db.Credentials, utils.NewTokenIssuer("test-secret", time.Hour))
	identity := services.NewIdentity(provider, db.Users, policy.New(adminEmail), logger)
	identity.Start()
	t.Cleanup(identity.Close)

	orders := services.NewOrders(db.Orders, notices, logger, services.OrdersOptions{})
	siteConfig := services.NewSiteConfig(db.SiteDocs, db.NavbarDocs, c, nil, notices, logger)
	carts := services.NewCarts(db.Products)
	outbox := services.NewOutbox(c, db.Orders, logger)
	checkout := services.NewCheckout(db.Orders, db.Products, carts, outbox, notices, logger, services.CheckoutOptions{})

	router := mux.NewRouter()
	RegisterRoutes(router, identity, Controllers{
		User:     controllers.NewUserController(identity, db.Users, carts, siteConfig),
		Product:  controllers.NewProductController(db.Products, db.Categories),
		Cart:     controllers.NewCartController(carts),
		Checkout: controllers.NewCheckoutController(checkout),
		Order:    controllers.NewOrderController(orders),
		Settings: controllers.NewSettingsController(siteConfig, payments.NewOnboarding(""), notices),
		Content:  controllers.NewContentController(db),
	})
	return &testServer{router: router, db: db, orders: orders}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, "POST", "/auth/signup", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.SignedIn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Session.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/cart", "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/admin/orders", "", nil).Code)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "ann@shop.test")
	rec := s.do(t, "POST", "/auth/login", "", map[string]string{"email": "ann@shop.test", "password": "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	customer := s.signup(t, "ann@shop.test")
	admin := s.signup(t, adminEmail)

	assert.Equal(t, http.StatusForbidden, s.do(t, "GET", "/admin/orders", customer, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/admin/orders", admin, nil).Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.db.Products.Insert(ctx, models.Product{ID: "p1", Name: "Beanie", Price: 12.5}))
	customer := s.signup(t, "ann@shop.test")
	admin := s.signup(t, adminEmail)

	rec := s.do(t, "POST", "/cart", customer, map[string]any{"product_id": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "POST", "/checkout/validate/payment", customer, map[string]any{"payment": map[string]string{"card_number": "123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)

	checkout := map[string]any{
		"shipping": map[string]string{
			"full_name": "Ann Lee", "email": "ann@shop.test", "phone": "555-0100", "street": "1 Main St",
			"city": "Springfield", "state": "IL", "zipcode": "62701", "country": "US",
		},
		"payment":  map[string]string{"method": "card", "card_number": "4242424242424242", "expiry": "12/30", "cvv": "123"},
		"discount": 1000,
	}
	rec = s.do(t, "POST", "/checkout", customer, checkout)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	// a discount in the body is ignored
	assert.Equal(t, 36.99, res.Order.TotalAmount)
	assert.Zero(t, res.Order.Discount)

	// cart was emptied, so a second submission fails validation
	rec = s.do(t, "POST", "/checkout", customer, checkout)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items"`)

	rec = s.do(t, "GET", "/me/orders", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	require.Equal(t, http.StatusOK, s.do(t, "POST", "/admin/orders/refresh", admin, nil).Code)
	rec = s.do(t, "PUT", "/admin/orders/"+res.Order.ID+"/status", admin, map[string]string{"status": "shipped", "note": "UPS"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "GET", "/admin/orders?status=shipped", admin, nil)
	var shipped []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shipped))
	require.Len(t, shipped, 1)
	assert.Len(t, shipped[0].StatusHistory, 2)

	rec = s.do(t, "PUT", "/admin/orders/"+res.Order.ID+"/status", admin, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsUpdate(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, adminEmail)

	rec := s.do(t, "PUT", "/admin/settings", admin, map[string]string{"siteName": "Yarn Barn", "navbarTheme": "retro"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "GET", "/settings", "", nil)
	var settings models.SiteSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "Yarn Barn", settings.SiteName)
	assert.Equal(t, models.ThemeRetro, settings.NavbarTheme)

	rec = s.do(t, "PUT", "/admin/settings", admin, map[string]string{"navbarTheme": "neon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastRoute(t *testing.T) {
	s := newTestServer(t)
	customer := s.signup(t, "ann@shop.test")

	rec := s.do(t, "PUT", "/me/last-route", customer, map[string]string{"route": "/products/p1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, "POST", "/auth/login", "", map[string]string{"email": "ann@shop.test", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_route":"/products/p1"`)
}

func TestContentPages(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, adminEmail)

	rec := s.do(t, "PUT", "/admin/content/about", admin, map[string]string{"title": "About", "body": "We knit."})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/content/about", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We knit.")

	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/content/secrets", "", nil).Code)

	rec = s.do(t, "POST", "/contact", "", map[string]string{"name": "Bo", "email": "not-an-email", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, "POST", "/contact", "", map[string]string{"name": "Bo", "email": "bo@shop.test", "message": "hi"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPaymentOnboardingNotConfigured(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, adminEmail)
	assert.Equal(t, http.StatusNotImplemented, s.do(t, "POST", "/admin/payments/onboarding", admin, nil).Code)
}

func TestAdminEditsRejectMistypedFields(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	admin := s.signup(t, adminEmail)
	require.NoError(t, s.db.Orders.Insert(ctx, models.Order{ID: "o1", OrderNumber: "ORD-AAA111", Status: models.StatusPending, CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.db.Products.Insert(ctx, models.Product{ID: "p1", Name: "Beanie", Price: 12.5}))
	require.NoError(t, s.db.HeroSlides.Insert(ctx, models.HeroSlide{ID: "h1", ImageURL: "a.png", Active: true}))

	for _, tc := range []struct {
		method, path string
		body         map[string]any
	}{
		{"PATCH", "/admin/orders/o1", map[string]any{"created_at": "2026-03-14"}},
		{"PATCH", "/admin/orders/o1", map[string]any{"priority": 5}},
		{"PATCH", "/admin/orders/o1", map[string]any{"priority": "loud"}},
		{"PATCH", "/admin/orders/o1", map[string]any{}},
		{"PUT", "/admin/products/p1", map[string]any{"price": "cheap"}},
		{"PUT", "/admin/products/p1", map[string]any{"created_at": "yesterday"}},
		{"PUT", "/admin/hero-slides/h1", map[string]any{"order": "first"}},
	} {
		rec := s.do(t, tc.method, tc.path, admin, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s %v", tc.method, tc.path, tc.body)
	}

	require.Equal(t, http.StatusOK, s.do(t, "POST", "/admin/orders/refresh", admin, nil).Code)
	rec := s.do(t, "PATCH", "/admin/orders/o1", admin, map[string]any{"priority": "high", "admin_notes": "call first"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ord models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
	assert.Equal(t, "high", ord.Priority)

	rec = s.do(t, "PUT", "/admin/hero-slides/h1", admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(t, "POST", "/admin/orders/refresh", admin, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/products", "", nil).Code)
	rec = s.do(t, "GET", "/hero-slides", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
