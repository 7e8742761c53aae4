// Package seed resets the demo collections to fixed data.
package seed

import (
	"context"
	"fmt"
	"time"

	"go-storefront/models"
	"go-storefront/store"
)

// Summary counts the documents written per collection.
type Summary map[string]int

// Reset empties products, categories, hero slides and orders and rewrites them, together with
// the settings documents, from the fixed demo data. Users and credentials are left alone.
func Reset(ctx context.Context, db *store.Database, now time.Time) (Summary, error) {
	sum := Summary{}

	if err := replace(ctx, db.Categories, categories(), func(c models.Category) string { return c.ID }); err != nil {
		return sum, err
	}
	sum[store.CategoriesCollection] = len(categories())

	if err := replace(ctx, db.Products, products(now), func(p models.Product) string { return p.ID }); err != nil {
		return sum, err
	}
	sum[store.ProductsCollection] = len(products(now))

	if err := replace(ctx, db.HeroSlides, heroSlides(), func(h models.HeroSlide) string { return h.ID }); err != nil {
		return sum, err
	}
	sum[store.HeroSlidesCollection] = len(heroSlides())

	if err := replace(ctx, db.Orders, orders(now), func(o models.Order) string { return o.ID }); err != nil {
		return sum, err
	}
	sum[store.OrdersCollection] = len(orders(now))

	if err := db.SiteDocs.Put(ctx, "site", models.SiteDocument{ID: "site", SiteName: "Demo Store"}); err != nil {
		return sum, fmt.Errorf("seed settings/site: %w", err)
	}
	if err := db.NavbarDocs.Put(ctx, "navbar", models.NavbarDocument{ID: "navbar", Theme: models.DefaultNavbarTheme}); err != nil {
		return sum, fmt.Errorf("seed settings/navbar: %w", err)
	}
	for _, page := range pages(now) {
		if err := db.Pages.Put(ctx, page.ID, page); err != nil {
			return sum, fmt.Errorf("seed settings/%s: %w", page.ID, err)
		}
	}
	sum[store.SettingsCollection] = 2 + len(pages(now))
	return sum, nil
}

func replace[T any](ctx context.Context, coll store.Collection[T], docs []T, id func(T) string) error {
	existing, err := coll.All(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", coll.Name(), err)
	}
	for _, doc := range existing {
		if err := coll.Delete(ctx, id(doc)); err != nil {
			return fmt.Errorf("clear %s: %w", coll.Name(), err)
		}
	}
	for _, doc := range docs {
		if err := coll.Put(ctx, id(doc), doc); err != nil {
			return fmt.Errorf("seed %s/%s: %w", coll.Name(), id(doc), err)
		}
	}
	return nil
}

func categories() []models.Category {
	return []models.Category{
		{ID: "hats", Name: "Hats", Slug: "hats"},
		{ID: "scarves", Name: "Scarves", Slug: "scarves"},
		{ID: "blankets", Name: "Blankets", Slug: "blankets"},
	}
}

func products(now time.Time) []models.Product {
	return []models.Product{
		{ID: "demo-beanie", Name: "Chunky Beanie", Description: "Hand-knit merino beanie.", Price: 24.99, Stock: 40,
			Category: "hats", Images: []string{"/images/beanie.jpg"}, Sizes: []string{"S", "M", "L"}, Colors: []string{"cream", "rust"},
			Featured: true, CreatedAt: now, UpdatedAt: now},
		{ID: "demo-scarf", Name: "Cable Scarf", Description: "Long cable-knit scarf.", Price: 39.5, Stock: 25,
			Category: "scarves", Images: []string{"/images/scarf.jpg"}, Colors: []string{"forest", "navy"},
			Featured: true, CreatedAt: now, UpdatedAt: now},
		{ID: "demo-throw", Name: "Granny Square Throw", Description: "Colourful sofa throw.", Price: 129, Stock: 5,
			Category: "blankets", Images: []string{"/images/throw.jpg"}, CreatedAt: now, UpdatedAt: now},
	}
}

func heroSlides() []models.HeroSlide {
	return []models.HeroSlide{
		{ID: "demo-hero-1", Title: "Winter Collection", Subtitle: "Warm layers, made by hand", ImageURL: "/images/hero-winter.jpg",
			CTAText: "Shop now", CTALink: "/products?category=hats", Order: 1, Active: true},
		{ID: "demo-hero-2", Title: "Free shipping over $50", ImageURL: "/images/hero-shipping.jpg",
			CTAText: "Browse", CTALink: "/products", Order: 2, Active: true},
	}
}

func orders(now time.Time) []models.Order {
	addr := models.Address{FullName: "Demo Customer", Street: "1 Demo Way", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
	placed := now.Add(-72 * time.Hour)
	return []models.Order{
		{
			ID: "demo-order-1", OrderNumber: "ORD-DEMO0001",
			Customer: models.Customer{ID: "demo-customer", DisplayName: "Demo Customer", Email: "customer@example.com"},
			Items:    []models.OrderItem{{ProductID: "demo-beanie", Name: "Chunky Beanie", Price: 24.99, Quantity: 1, Size: "M"}},
			Subtotal: 24.99, Shipping: 9.99, Tax: 2, TotalAmount: 36.98,
			Status: models.StatusShipped,
			StatusHistory: []models.StatusChange{
				{Status: models.StatusPending, Timestamp: placed, Note: "Order placed"},
				{Status: models.StatusShipped, Timestamp: now.Add(-24 * time.Hour), UpdatedBy: "admin@example.com"},
			},
			ShippingAddress: addr, BillingAddress: addr,
			Priority: "normal", Source: "web", PaymentMethod: "card", PaymentStatus: "pending",
			CreatedAt: placed, UpdatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID: "demo-order-2", OrderNumber: "ORD-DEMO0002",
			Customer: models.Customer{ID: "demo-customer", DisplayName: "Demo Customer", Email: "customer@example.com"},
			Items:    []models.OrderItem{{ProductID: "demo-throw", Name: "Granny Square Throw", Price: 129, Quantity: 1}},
			Subtotal: 129, Shipping: 0, Tax: 10.32, TotalAmount: 139.32,
			Status:        models.StatusPending,
			StatusHistory: []models.StatusChange{{Status: models.StatusPending, Timestamp: now, Note: "Order placed"}},
			ShippingAddress: addr, BillingAddress: addr,
			Priority: "normal", Source: "direct_buy", PaymentMethod: "card", PaymentStatus: "pending",
			CreatedAt: now, UpdatedAt: now,
		},
	}
}

func pages(now time.Time) []models.PageContent {
	return []models.PageContent{
		{ID: "footer", Title: "Demo Store", Body: "Handmade with care.",
			Links: []models.FooterLink{{Label: "About", URL: "/about"}, {Label: "Contact", URL: "/contact"}}, UpdatedAt: now},
		{ID: "about", Title: "About us", Body: "A small studio making knitwear one stitch at a time.", UpdatedAt: now},
		{ID: "contact", Title: "Get in touch", Body: "We answer within two working days.",
			Email: "hello@example.com", Phone: "+1 555 0100", UpdatedAt: now},
	}
}
