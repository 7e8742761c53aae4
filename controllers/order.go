package controllers

import (
	"net/http"
	"time"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"

	"github.com/gorilla/mux"
)

// OrderController exposes order management to admins and order history to customers
type OrderController struct {
	Orders *services.Orders
}

func NewOrderController(orders *services.Orders) *OrderController {
	return &OrderController{Orders: orders}
}

// GetOrders filters the loaded orders by ?status=, ?search=, ?from= and ?to= (RFC 3339 or
// YYYY-MM-DD; a bare "to" date includes the whole day)
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.OrderFilter{Search: q.Get("search")}
	if s := q.Get("status"); s != "" {
		status, err := models.ParseOrderStatus(s)
		if err != nil {
			http.Error(w, "Invalid order status", http.StatusBadRequest)
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Range.From, err = parseDate(q.Get("from"), false); err != nil {
		http.Error(w, "Invalid from date", http.StatusBadRequest)
		return
	}
	if filter.Range.To, err = parseDate(q.Get("to"), true); err != nil {
		http.Error(w, "Invalid to date", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, oc.Orders.FilterOrders(filter))
}

func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := oc.Orders.Order(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (oc *OrderController) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, oc.Orders.GetOrderStats(time.Now()))
}

// RefreshOrders re-reads every order from the store
func (oc *OrderController) RefreshOrders(w http.ResponseWriter, r *http.Request) {
	if err := oc.Orders.FetchOrders(r.Context()); err != nil {
		writeError(w, err, "Failed to fetch orders")
		return
	}
	writeJSON(w, http.StatusOK, oc.Orders.Orders())
}

// UpdateOrderStatus changes the status of one order
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.OrderStatus `json:"status"`
		Note   string             `json:"note"`
	}
	if err := decode(r, &body); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := oc.Orders.UpdateOrderStatus(r.Context(), id, body.Status, body.Note, middleware.CurrentUser(r).Email); err != nil {
		writeError(w, err, "Failed to update order status")
		return
	}
	oc.respondOrder(w, id)
}

// UpdateOrder changes the editable fields of one order. Unknown or mistyped fields are rejected.
func (oc *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch services.OrderPatch
	if err := decodeStrict(r, &patch); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := oc.Orders.UpdateOrder(r.Context(), id, patch); err != nil {
		writeError(w, err, "Failed to update order")
		return
	}
	oc.respondOrder(w, id)
}

func (oc *OrderController) AddAdminNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	if err := decode(r, &body); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := oc.Orders.AddAdminNote(r.Context(), id, body.Note); err != nil {
		writeError(w, err, "Failed to save note")
		return
	}
	oc.respondOrder(w, id)
}

func (oc *OrderController) UpdateShippingInfo(w http.ResponseWriter, r *http.Request) {
	var patch services.ShippingPatch
	if err := decode(r, &patch); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := oc.Orders.UpdateShippingInfo(r.Context(), id, patch); err != nil {
		writeError(w, err, "Failed to update shipping info")
		return
	}
	oc.respondOrder(w, id)
}

// BulkUpdateStatus sets one status on many orders. Partial failures answer 207 with the
// per-order outcome.
func (oc *OrderController) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs    []string           `json:"ids"`
		Status models.OrderStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil || len(body.IDs) == 0 {
		http.Error(w, "Order ids are required", http.StatusBadRequest)
		return
	}
	res, err := oc.Orders.BulkUpdateStatus(r.Context(), body.IDs, body.Status)
	if err != nil {
		if len(res.Updated) > 0 {
			writeJSON(w, http.StatusMultiStatus, res)
			return
		}
		writeError(w, err, "Failed to update orders")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (oc *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := oc.Orders.DeleteOrder(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, "Failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMyOrders returns the signed-in customer's orders
func (oc *OrderController) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := oc.Orders.CustomerOrders(r.Context(), middleware.CurrentUser(r).ID)
	if err != nil {
		writeError(w, err, "Failed to fetch your orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (oc *OrderController) respondOrder(w http.ResponseWriter, id string) {
	if order, ok := oc.Orders.Order(id); ok {
		writeJSON(w, http.StatusOK, order)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
