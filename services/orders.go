package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go-storefront/errs"
	"go-storefront/events"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/notify"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const DefaultPollInterval = 30 * time.Second

type OrdersOptions struct {
	// Watcher drives SubscribeToOrders. Defaults to polling every DefaultPollInterval.
	Watcher store.Watcher
	Events  events.Publisher
	// Mailer, when set, emails the customer on status changes.
	Mailer *utils.EmailService
	// HistoryOverwrite replaces the status history with the single newest entry instead of
	// appending to it.
	HistoryOverwrite bool
}

// OrderFilter selects orders locally. Zero fields do not filter.
type OrderFilter struct {
	Status models.OrderStatus
	Search string
	Range  models.DateRange
}

// ShippingPatch carries the shipping fields to change; nil fields are kept.
type ShippingPatch struct {
	Carrier           *string    `json:"carrier"`
	TrackingNumber    *string    `json:"tracking_number"`
	TrackingURL       *string    `json:"tracking_url"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ShippedAt         *time.Time `json:"shipped_at"`
}

var orderPriorities = []string{"normal", "high", "urgent"}

// OrderPatch lists the order fields an admin may edit. Nil fields are kept. Totals, items,
// the customer and timestamps are fixed at creation.
type OrderPatch struct {
	Status          *models.OrderStatus  `json:"status,omitempty"`
	Priority        *string              `json:"priority,omitempty"`
	PaymentStatus   *string              `json:"payment_status,omitempty"`
	AdminNotes      *string              `json:"admin_notes,omitempty"`
	ShippingAddress *models.Address      `json:"shipping_address,omitempty"`
	BillingAddress  *models.Address      `json:"billing_address,omitempty"`
	ShippingInfo    *models.ShippingInfo `json:"shipping_info,omitempty"`
}

func (p OrderPatch) fields() (bson.M, error) {
	m := bson.M{}
	if p.Status != nil {
		if _, err := models.ParseOrderStatus(string(*p.Status)); err != nil {
			return nil, errs.E(errs.KindInvalid, "orders.patch", "Invalid order status", err)
		}
		m["status"] = *p.Status
	}
	if p.Priority != nil {
		if !slices.Contains(orderPriorities, *p.Priority) {
			return nil, errs.E(errs.KindInvalid, "orders.patch", "Invalid priority", nil)
		}
		m["priority"] = *p.Priority
	}
	if p.PaymentStatus != nil {
		m["payment_status"] = *p.PaymentStatus
	}
	if p.AdminNotes != nil {
		m["admin_notes"] = *p.AdminNotes
	}
	if p.ShippingAddress != nil {
		m["shipping_address"] = *p.ShippingAddress
	}
	if p.BillingAddress != nil {
		m["billing_address"] = *p.BillingAddress
	}
	if p.ShippingInfo != nil {
		m["shipping_info"] = *p.ShippingInfo
	}
	if len(m) == 0 {
		return nil, errs.E(errs.KindInvalid, "orders.patch", "Nothing to update", nil)
	}
	return m, nil
}

// BulkResult lists which orders a bulk update reached.
type BulkResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Orders keeps an in-memory copy of the orders collection for the back-office. Writes go to
// the store and are followed by a full re-fetch; reads, filters and statistics use the copy.
type Orders struct {
	coll     store.Collection[models.Order]
	notifier notify.Notifier
	logger   zerolog.Logger
	opts     OrdersOptions
	now      func() time.Time

	mu      sync.RWMutex
	orders  []models.Order
	loading bool
	lastErr string
	// gen counts local removals. A fetch that started before one is discarded.
	gen uint64
}

func NewOrders(coll store.Collection[models.Order], notifier notify.Notifier, logger zerolog.Logger, opts OrdersOptions) *Orders {
	if opts.Watcher == nil {
		opts.Watcher = store.Ticker{Interval: DefaultPollInterval}
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Orders{
		coll:     coll,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (o *Orders) FetchOrders(ctx context.Context) error {
	o.mu.Lock()
	o.loading = true
	gen := o.gen
	o.mu.Unlock()

	list, err := o.coll.All(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.loading = false
	if err != nil {
		o.lastErr = "Failed to fetch orders"
		metrics.RecordOrderOperation("fetch", false)
		o.notifier.Error(o.lastErr, err)
		return errs.E(errs.KindUnavailable, "orders.fetch", o.lastErr, err)
	}
	if gen != o.gen {
		o.logger.Debug().Msg("discarding order fetch that raced a delete")
		return nil
	}
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].CreatedAt.After(list[b].CreatedAt)
	})
	o.orders = list
	o.lastErr = ""
	metrics.RecordOrderOperation("fetch", true)
	return nil
}

// refresh re-fetches after a write. A failed re-fetch is already reported by FetchOrders
// and does not undo the write.
func (o *Orders) refresh(ctx context.Context) {
	_ = o.FetchOrders(ctx)
}

func (o *Orders) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, note, updatedBy string) error {
	const op = "update_status"
	if _, err := models.ParseOrderStatus(string(status)); err != nil {
		return errs.E(errs.KindInvalid, "orders."+op, "Invalid order status", err)
	}
	now := o.now()
	if err := o.coll.Merge(ctx, orderID, bson.M{"status": status, "updated_at": now}); err != nil {
		return o.fail(op, "Failed to update order status", err)
	}

	entry := models.StatusChange{Status: status, Timestamp: now, Note: note, UpdatedBy: updatedBy}
	var err error
	switch {
	case o.opts.HistoryOverwrite && note != "":
		err = o.coll.Merge(ctx, orderID, bson.M{"status_history": []models.StatusChange{entry}})
	case !o.opts.HistoryOverwrite:
		err = o.coll.Push(ctx, orderID, "status_history", entry)
	}
	if err != nil {
		return o.fail(op, "Failed to record status history", err)
	}

	metrics.RecordOrderOperation(op, true)
	o.notifier.Success("Order status updated")
	o.publish(ctx, models.OrderEvent{OrderID: orderID, Type: "status_updated", Status: status, Occurred: now})
	o.refresh(ctx)
	o.mailStatus(orderID)
	return nil
}

// UpdateOrder merges the set fields of patch into the order document.
func (o *Orders) UpdateOrder(ctx context.Context, orderID string, patch OrderPatch) error {
	const op = "update"
	update, err := patch.fields()
	if err != nil {
		return err
	}
	update["updated_at"] = o.now()
	if err := o.coll.Merge(ctx, orderID, update); err != nil {
		return o.fail(op, "Failed to update order", err)
	}
	metrics.RecordOrderOperation(op, true)
	o.notifier.Success("Order updated")
	o.refresh(ctx)
	return nil
}

// DeleteOrder removes the order remotely and filters it out of the local copy.
func (o *Orders) DeleteOrder(ctx context.Context, orderID string) error {
	const op = "delete"
	if err := o.coll.Delete(ctx, orderID); err != nil {
		return o.fail(op, "Failed to delete order", err)
	}

	o.mu.Lock()
	kept := o.orders[:0:0]
	for _, ord := range o.orders {
		if ord.ID != orderID {
			kept = append(kept, ord)
		}
	}
	o.orders = kept
	o.gen++
	o.mu.Unlock()

	metrics.RecordOrderOperation(op, true)
	o.notifier.Success("Order deleted")
	o.publish(ctx, models.OrderEvent{OrderID: orderID, Type: "deleted", Occurred: o.now()})
	return nil
}

// AddAdminNote is a no-op for orders not present in the local copy.
func (o *Orders) AddAdminNote(ctx context.Context, orderID, note string) error {
	if _, ok := o.Order(orderID); !ok {
		return nil
	}
	return o.UpdateOrder(ctx, orderID, OrderPatch{AdminNotes: &note})
}

func (o *Orders) UpdateShippingInfo(ctx context.Context, orderID string, patch ShippingPatch) error {
	info := models.ShippingInfo{}
	if existing, ok := o.Order(orderID); ok && existing.ShippingInfo != nil {
		info = *existing.ShippingInfo
	}
	if patch.Carrier != nil {
		info.Carrier = *patch.Carrier
	}
	if patch.TrackingNumber != nil {
		info.TrackingNumber = *patch.TrackingNumber
	}
	if patch.TrackingURL != nil {
		info.TrackingURL = *patch.TrackingURL
	}
	if patch.EstimatedDelivery != nil {
		info.EstimatedDelivery = patch.EstimatedDelivery
	}
	if patch.ShippedAt != nil {
		info.ShippedAt = patch.ShippedAt
	}
	return o.UpdateOrder(ctx, orderID, OrderPatch{ShippingInfo: &info})
}

// BulkUpdateStatus writes the status of every id concurrently, then re-fetches once.
// Writes are independent: some may succeed while others fail.
func (o *Orders) BulkUpdateStatus(ctx context.Context, orderIDs []string, status models.OrderStatus) (BulkResult, error) {
	const op = "bulk_update_status"
	result := BulkResult{Updated: []string{}}
	if _, err := models.ParseOrderStatus(string(status)); err != nil {
		return result, errs.E(errs.KindInvalid, "orders."+op, "Invalid order status", err)
	}

	now := o.now()
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed = map[string]string{}
	)
	for _, id := range orderIDs {
		id := id
		g.Go(func() error {
			err := o.coll.Merge(ctx, id, bson.M{"status": status, "updated_at": now})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[id] = err.Error()
				return err
			}
			result.Updated = append(result.Updated, id)
			return nil
		})
	}
	firstErr := g.Wait()
	o.refresh(ctx)
	for _, id := range result.Updated {
		o.publish(ctx, models.OrderEvent{OrderID: id, Type: "status_updated", Status: status, Occurred: now})
	}

	if firstErr != nil {
		result.Failed = failed
		return result, o.fail(op, "Failed to update some orders", firstErr)
	}
	metrics.RecordOrderOperation(op, true)
	o.notifier.Success("Orders updated")
	return result, nil
}

// FilterOrders matches the local copy: exact status, case-insensitive search over order
// number, customer name and email, and an inclusive creation date range.
func (o *Orders) FilterOrders(f OrderFilter) []models.Order {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	o.mu.RLock()
	defer o.mu.RUnlock()
	out := []models.Order{}
	for _, ord := range o.orders {
		if f.Status != "" && ord.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ord.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(ord.Customer.DisplayName), search) &&
			!strings.Contains(strings.ToLower(ord.Customer.Email), search) {
			continue
		}
		if !f.Range.Contains(ord.CreatedAt) {
			continue
		}
		out = append(out, ord)
	}
	return out
}

// GetOrderStats summarizes the local copy. Today counts orders created since midnight in
// now's location.
func (o *Orders) GetOrderStats(now time.Time) models.OrderStats {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	o.mu.RLock()
	defer o.mu.RUnlock()
	stats := models.OrderStats{Total: len(o.orders)}
	var sum float64
	for _, ord := range o.orders {
		sum += ord.TotalAmount
		switch ord.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusConfirmed, models.StatusProcessing, models.StatusPacked:
			stats.Processing++
		case models.StatusShipped, models.StatusOutForDelivery:
			stats.Shipped++
		case models.StatusDelivered:
			stats.Delivered++
		case models.StatusCancelled, models.StatusReturned, models.StatusRefunded:
			stats.Cancelled++
		}
		switch ord.Status {
		case models.StatusDelivered, models.StatusShipped, models.StatusOutForDelivery:
			stats.Revenue += ord.TotalAmount
		}
		if !ord.CreatedAt.Before(midnight) {
			stats.Today++
		}
	}
	if stats.Total > 0 {
		stats.AverageOrderValue = sum / float64(stats.Total)
	}
	return stats
}

// SubscribeToOrders re-fetches whenever the watcher fires. Call the returned function to stop.
func (o *Orders) SubscribeToOrders() (func(), error) {
	return o.opts.Watcher.Watch(store.OrdersCollection, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = o.FetchOrders(ctx)
	})
}

// CustomerOrders reads one customer's orders straight from the store.
func (o *Orders) CustomerOrders(ctx context.Context, uid string) ([]models.Order, error) {
	list, err := o.coll.Where(ctx, "customer.id", uid)
	if err != nil {
		return nil, errs.E(errs.KindUnavailable, "orders.customer", "Failed to fetch your orders", err)
	}
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].CreatedAt.After(list[b].CreatedAt)
	})
	return list, nil
}

func (o *Orders) Order(orderID string) (models.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ord := range o.orders {
		if ord.ID == orderID {
			return ord, true
		}
	}
	return models.Order{}, false
}

func (o *Orders) Orders() []models.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.Order(nil), o.orders...)
}

func (o *Orders) Loading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loading
}

func (o *Orders) LastError() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

func (o *Orders) fail(op, msg string, err error) error {
	metrics.RecordOrderOperation(op, false)
	o.notifier.Error(msg, err)
	o.mu.Lock()
	o.lastErr = msg
	o.mu.Unlock()

	kind := errs.KindUnavailable
	if errors.Is(err, store.ErrNotFound) {
		kind = errs.KindNotFound
	}
	return errs.E(kind, "orders."+op, msg, err)
}

func (o *Orders) publish(ctx context.Context, ev models.OrderEvent) {
	if err := o.opts.Events.PublishOrderEvent(ctx, ev); err != nil {
		o.logger.Warn().Err(err).Str("order_id", ev.OrderID).Str("type", ev.Type).Msg("failed to publish order event")
	}
}

func (o *Orders) mailStatus(orderID string) {
	if o.opts.Mailer == nil {
		return
	}
	ord, ok := o.Order(orderID)
	if !ok || ord.Customer.Email == "" {
		return
	}
	go func() {
		if err := o.opts.Mailer.SendStatusUpdateEmail(ord); err != nil {
			o.logger.Warn().Err(err).Str("order_id", orderID).Msg("failed to send status email")
		}
	}()
}
