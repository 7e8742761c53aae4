package controllers

import (
	"net/http"

	"go-storefront/middleware"
	"go-storefront/services"

	"github.com/gorilla/mux"
)

type CheckoutController struct {
	Checkout *services.Checkout
}

func NewCheckoutController(checkout *services.Checkout) *CheckoutController {
	return &CheckoutController{Checkout: checkout}
}

// ValidateStep checks one wizard step and returns its field errors
func (cc *CheckoutController) ValidateStep(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	step := services.CheckoutStep(mux.Vars(r)["step"])

	items, err := cc.Checkout.Items(r.Context(), middleware.CurrentUser(r).ID, req)
	if err != nil {
		writeError(w, err, "Failed to load items")
		return
	}
	fields, err := services.ValidateStep(step, req, items)
	if err != nil {
		writeError(w, err, "Unknown checkout step")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(fields) == 0, "fields": fields})
}

// PlaceOrder submits the wizard. 201 when the order was stored, 202 when it is queued for a
// retry, 200 when the Idempotency-Key matched an earlier submission.
func (cc *CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	res, err := cc.Checkout.Submit(r.Context(), middleware.CurrentUser(r), req)
	if err != nil {
		writeError(w, err, "Failed to place order")
		return
	}
	status := http.StatusCreated
	switch {
	case res.Duplicate:
		status = http.StatusOK
	case res.Queued:
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}
