package routes

import (
	"net/http"

	"go-storefront/controllers"
	"go-storefront/middleware"
	"go-storefront/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers groups the handlers mounted by RegisterRoutes
type Controllers struct {
	User     *controllers.UserController
	Product  *controllers.ProductController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Order    *controllers.OrderController
	Settings *controllers.SettingsController
	Content  *controllers.ContentController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, identity *services.Identity, c Controllers) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public routes
	router.HandleFunc("/auth/signup", c.User.Register).Methods("POST")
	router.HandleFunc("/auth/login", c.User.Login).Methods("POST")
	router.HandleFunc("/settings", c.Settings.GetSettings).Methods("GET")
	router.HandleFunc("/products", c.Product.GetProducts).Methods("GET")
	router.HandleFunc("/products/{id}", c.Product.GetProductByID).Methods("GET")
	router.HandleFunc("/categories", c.Product.GetCategories).Methods("GET")
	router.HandleFunc("/hero-slides", c.Content.GetHeroSlides).Methods("GET")
	router.HandleFunc("/content/{page}", c.Content.GetContent).Methods("GET")
	router.HandleFunc("/contact", c.Content.SubmitContact).Methods("POST")

	// Admin routes, mounted before the catch-all protected subrouter
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(identity))
	admin.Use(middleware.AdminMiddleware)

	admin.HandleFunc("/orders", c.Order.GetOrders).Methods("GET")
	admin.HandleFunc("/orders/stats", c.Order.GetStats).Methods("GET")
	admin.HandleFunc("/orders/refresh", c.Order.RefreshOrders).Methods("POST")
	admin.HandleFunc("/orders/bulk-status", c.Order.BulkUpdateStatus).Methods("POST")
	admin.HandleFunc("/orders/{id}", c.Order.GetOrder).Methods("GET")
	admin.HandleFunc("/orders/{id}", c.Order.UpdateOrder).Methods("PATCH")
	admin.HandleFunc("/orders/{id}", c.Order.DeleteOrder).Methods("DELETE")
	admin.HandleFunc("/orders/{id}/status", c.Order.UpdateOrderStatus).Methods("PUT")
	admin.HandleFunc("/orders/{id}/notes", c.Order.AddAdminNote).Methods("PUT")
	admin.HandleFunc("/orders/{id}/shipping", c.Order.UpdateShippingInfo).Methods("PUT")

	admin.HandleFunc("/products", c.Product.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{id}", c.Product.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", c.Product.DeleteProduct).Methods("DELETE")
	admin.HandleFunc("/categories", c.Product.CreateCategory).Methods("POST")
	admin.HandleFunc("/categories/{id}", c.Product.DeleteCategory).Methods("DELETE")

	admin.HandleFunc("/customers", c.User.ListCustomers).Methods("GET")
	admin.HandleFunc("/customers/{id}", c.User.GetCustomer).Methods("GET")

	admin.HandleFunc("/hero-slides", c.Content.CreateHeroSlide).Methods("POST")
	admin.HandleFunc("/hero-slides/{id}", c.Content.UpdateHeroSlide).Methods("PUT")
	admin.HandleFunc("/hero-slides/{id}", c.Content.DeleteHeroSlide).Methods("DELETE")
	admin.HandleFunc("/content/{page}", c.Content.PutContent).Methods("PUT")
	admin.HandleFunc("/contact-messages", c.Content.GetContactMessages).Methods("GET")
	admin.HandleFunc("/contact-messages/{id}", c.Content.DeleteContactMessage).Methods("DELETE")

	admin.HandleFunc("/settings", c.Settings.UpdateSettings).Methods("PUT")
	admin.HandleFunc("/notices", c.Settings.GetNotices).Methods("GET")
	admin.HandleFunc("/payments/onboarding", c.Settings.StartPaymentOnboarding).Methods("POST")

	// Protected routes
	protected := router.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(identity))
	protected.HandleFunc("/auth/logout", c.User.Logout).Methods("POST")
	protected.HandleFunc("/me", c.User.GetProfile).Methods("GET")
	protected.HandleFunc("/me/last-route", c.User.GetLastRoute).Methods("GET")
	protected.HandleFunc("/me/last-route", c.User.SetLastRoute).Methods("PUT")
	protected.HandleFunc("/me/orders", c.Order.GetMyOrders).Methods("GET")

	// Cart Routes
	protected.HandleFunc("/cart", c.Cart.GetCart).Methods("GET")
	protected.HandleFunc("/cart", c.Cart.AddToCart).Methods("POST")
	protected.HandleFunc("/cart", c.Cart.RemoveFromCart).Methods("DELETE")
	protected.HandleFunc("/cart/items", c.Cart.UpdateCartItem).Methods("PUT")

	// Checkout Routes
	protected.HandleFunc("/checkout/validate/{step}", c.Checkout.ValidateStep).Methods("POST")
	protected.HandleFunc("/checkout", c.Checkout.PlaceOrder).Methods("POST")
}
