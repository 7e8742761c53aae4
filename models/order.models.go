package models

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of an order. No values outside AllOrderStatuses are accepted.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusPacked         OrderStatus = "packed"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusReturned       OrderStatus = "returned"
	StatusRefunded       OrderStatus = "refunded"
)

var AllOrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusProcessing, StatusPacked, StatusShipped,
	StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned, StatusRefunded,
}

// ParseOrderStatus validates s against the status enumeration.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range AllOrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Customer is the snapshot of the buyer taken when the order is placed.
type Customer struct {
	ID          string `bson:"id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone" json:"phone"`
}

// OrderItem represents a purchased line
type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
	Size      string  `bson:"size,omitempty" json:"size,omitempty"`
	Color     string  `bson:"color,omitempty" json:"color,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Note      string      `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy string      `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

type ShippingInfo struct {
	Carrier           string     `bson:"carrier" json:"carrier"`
	TrackingNumber    string     `bson:"tracking_number" json:"tracking_number"`
	TrackingURL       string     `bson:"tracking_url" json:"tracking_url"`
	EstimatedDelivery *time.Time `bson:"estimated_delivery,omitempty" json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time `bson:"shipped_at,omitempty" json:"shipped_at,omitempty"`
}

// Order represents a placed order. Totals are computed once at creation and never recomputed.
type Order struct {
	ID              string         `bson:"_id" json:"id"`
	OrderNumber     string         `bson:"order_number" json:"order_number"`
	Customer        Customer       `bson:"customer" json:"customer"`
	Items           []OrderItem    `bson:"items" json:"items"`
	Subtotal        float64        `bson:"subtotal" json:"subtotal"`
	Shipping        float64        `bson:"shipping" json:"shipping"`
	Tax             float64        `bson:"tax" json:"tax"`
	Discount        float64        `bson:"discount" json:"discount"`
	TotalAmount     float64        `bson:"total_amount" json:"total_amount"`
	Status          OrderStatus    `bson:"status" json:"status"`
	StatusHistory   []StatusChange `bson:"status_history" json:"status_history"`
	ShippingAddress Address        `bson:"shipping_address" json:"shipping_address"`
	BillingAddress  Address        `bson:"billing_address" json:"billing_address"`
	ShippingInfo    *ShippingInfo  `bson:"shipping_info,omitempty" json:"shipping_info,omitempty"`
	AdminNotes      string         `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	Priority        string         `bson:"priority" json:"priority"` // "normal", "high", "urgent"
	Source          string         `bson:"source" json:"source"`     // "web", "direct_buy", "admin"
	PaymentMethod   string         `bson:"payment_method" json:"payment_method"`
	PaymentStatus   string         `bson:"payment_status" json:"payment_status"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
}

// DateRange is inclusive on both ends. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// OrderStats is derived from the in-memory order collection.
type OrderStats struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Processing        int     `json:"processing"`
	Shipped           int     `json:"shipped"`
	Delivered         int     `json:"delivered"`
	Cancelled         int     `json:"cancelled"`
	Today             int     `json:"today"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// OrderEvent is published to the message broker on order lifecycle changes.
type OrderEvent struct {
	OrderID  string      `json:"order_id"`
	Type     string      `json:"type"` // created, status_updated, deleted
	Status   OrderStatus `json:"status,omitempty"`
	Total    float64     `json:"total,omitempty"`
	Occurred time.Time   `json:"occurred"`
}
