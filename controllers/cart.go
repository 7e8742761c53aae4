package controllers

import (
	"net/http"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"
)

// CartController handles cart-related requests
type CartController struct {
	Carts *services.Carts
}

func NewCartController(carts *services.Carts) *CartController {
	return &CartController{Carts: carts}
}

// AddToCart adds a product to the user's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req services.AddItemRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	cart, err := cc.Carts.Add(r.Context(), middleware.CurrentUser(r).ID, req)
	if err != nil {
		writeError(w, err, "Failed to add item")
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// GetCart retrieves the user's cart
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cc.Carts.Get(middleware.CurrentUser(r).ID))
}

// UpdateCartItem sets the quantity of a cart line
func (cc *CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if err := decode(r, &item); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	cart, err := cc.Carts.SetQuantity(middleware.CurrentUser(r).ID, item)
	if err != nil {
		writeError(w, err, "Failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCart removes one line, or empties the cart when no product is given
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	uid := middleware.CurrentUser(r).ID
	var item models.CartItem
	if r.ContentLength != 0 {
		if err := decode(r, &item); err != nil {
			http.Error(w, "Invalid input", http.StatusBadRequest)
			return
		}
	}
	if item.ProductID == "" {
		cc.Carts.Clear(uid)
		writeJSON(w, http.StatusOK, cc.Carts.Get(uid))
		return
	}
	writeJSON(w, http.StatusOK, cc.Carts.Remove(uid, item))
}
