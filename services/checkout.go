package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go-storefront/errs"
	"go-storefront/events"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/notify"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CheckoutStep string

const (
	StepShipping CheckoutStep = "shipping"
	StepPayment  CheckoutStep = "payment"
	StepReview   CheckoutStep = "review"
)

// orderNamespace scopes order ids derived from idempotency keys.
var orderNamespace = uuid.MustParse("8f0d6c1e-5a43-4c1b-9a57-6f3c2e1d4b90")

// ValidationError maps field names to messages for one or more wizard steps.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

type CheckoutRequest struct {
	Shipping models.ShippingDetails `json:"shipping"`
	Payment  models.PaymentDetails  `json:"payment"`
	// DirectBuy checks out a single product and leaves the cart alone.
	DirectBuy *AddItemRequest `json:"direct_buy,omitempty"`
	// IdempotencyKey makes resubmission return the order created by the first attempt.
	IdempotencyKey string `json:"-"`
}

type CheckoutResult struct {
	Order models.Order `json:"order"`
	// Queued is set when the store rejected the write and the order waits in the outbox.
	Queued bool `json:"queued"`
	// Duplicate is set when an earlier submission with the same idempotency key won.
	Duplicate bool `json:"duplicate"`
}

type CheckoutOptions struct {
	Events events.Publisher
	Mailer *utils.EmailService
	// Discount computes the order discount from the priced items. Nil means no discount.
	// Customers never supply the amount.
	Discount func(items []models.CartItem) float64
}

type Checkout struct {
	orders   store.Collection[models.Order]
	products store.Collection[models.Product]
	carts    *Carts
	outbox   *Outbox
	notifier notify.Notifier
	logger   zerolog.Logger
	opts     CheckoutOptions
	now      func() time.Time
}

func NewCheckout(orders store.Collection[models.Order], products store.Collection[models.Product], carts *Carts, outbox *Outbox, notifier notify.Notifier, logger zerolog.Logger, opts CheckoutOptions) *Checkout {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	c := &Checkout{
		orders:   orders,
		products: products,
		carts:    carts,
		outbox:   outbox,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
	outbox.OnFlushed = c.afterCreate
	return c
}

// ValidateStep checks one wizard step. A nil result means the step is complete.
func ValidateStep(step CheckoutStep, req CheckoutRequest, items []models.CartItem) (map[string]string, error) {
	fields := map[string]string{}
	switch step {
	case StepShipping:
		s := req.Shipping
		required := []struct{ name, value string }{
			{"full_name", s.FullName}, {"email", s.Email}, {"phone", s.Phone},
			{"street", s.Street}, {"city", s.City}, {"state", s.State},
			{"zipcode", s.ZipCode}, {"country", s.Country},
		}
		for _, f := range required {
			if strings.TrimSpace(f.value) == "" {
				fields[f.name] = "This field is required"
			}
		}
	case StepPayment:
		p := req.Payment
		if digits(p.CardNumber) < 16 {
			fields["card_number"] = "Card number must be at least 16 digits"
		}
		if len(strings.TrimSpace(p.CVV)) < 3 {
			fields["cvv"] = "CVV must be at least 3 digits"
		}
		if strings.TrimSpace(p.Expiry) == "" {
			fields["expiry"] = "Expiry date is required"
		}
	case StepReview:
		if len(items) == 0 {
			fields["items"] = "Your cart is empty"
		}
	default:
		return nil, errs.E(errs.KindInvalid, "checkout.validate", fmt.Sprintf("Unknown checkout step %q", step), nil)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// Items returns the lines a request would check out: the direct-buy item or the cart.
func (c *Checkout) Items(ctx context.Context, uid string, req CheckoutRequest) ([]models.CartItem, error) {
	if req.DirectBuy != nil {
		line, err := SnapshotItem(ctx, c.products, *req.DirectBuy)
		if err != nil {
			return nil, err
		}
		return []models.CartItem{line}, nil
	}
	return c.carts.Get(uid).Items, nil
}

// Submit validates every step and creates one order. When the store is unreachable the order
// is queued in the outbox and the result says so.
func (c *Checkout) Submit(ctx context.Context, user *models.User, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "checkout.submit"
	items, err := c.Items(ctx, user.ID, req)
	if err != nil {
		return nil, err
	}

	invalid := map[string]string{}
	for _, step := range []CheckoutStep{StepShipping, StepPayment, StepReview} {
		fields, _ := ValidateStep(step, req, items)
		for k, v := range fields {
			invalid[k] = v
		}
	}
	if len(invalid) > 0 {
		return nil, errs.E(errs.KindInvalid, op, "Please correct the highlighted fields", &ValidationError{Fields: invalid})
	}

	id := uuid.NewString()
	if req.IdempotencyKey != "" {
		id = uuid.NewSHA1(orderNamespace, []byte(user.ID+":"+req.IdempotencyKey)).String()
		if res, ok := c.existing(ctx, id); ok {
			return res, nil
		}
	}

	order := c.buildOrder(id, user, req, items)
	err = c.orders.Insert(ctx, order)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		if res, ok := c.existing(ctx, id); ok {
			return res, nil
		}
		return nil, errs.E(errs.KindConflict, op, "Order already exists", err)
	case err != nil:
		c.logger.Error().Err(err).Str("order_id", id).Msg("failed to create order, queueing")
		if qerr := c.outbox.Enqueue(order); qerr != nil {
			metrics.RecordOrderOperation("create", false)
			c.notifier.Error("Failed to place order", errors.Join(err, qerr))
			return nil, errs.E(errs.KindUnavailable, op, "Failed to place order", errors.Join(err, qerr))
		}
		c.notifier.Error("Order saved and will be submitted when the store is reachable", err)
		c.clearCart(user.ID, req)
		return &CheckoutResult{Order: order, Queued: true}, nil
	}

	metrics.RecordOrderOperation("create", true)
	c.notifier.Success("Order placed")
	c.clearCart(user.ID, req)
	c.afterCreate(order)
	return &CheckoutResult{Order: order}, nil
}

func (c *Checkout) existing(ctx context.Context, id string) (*CheckoutResult, bool) {
	if ord, err := c.orders.Get(ctx, id); err == nil {
		return &CheckoutResult{Order: ord, Duplicate: true}, true
	}
	if c.outbox.Has(id) {
		pending, _ := c.outbox.Pending()
		for _, ord := range pending {
			if ord.ID == id {
				return &CheckoutResult{Order: ord, Queued: true, Duplicate: true}, true
			}
		}
	}
	return nil, false
}

func (c *Checkout) buildOrder(id string, user *models.User, req CheckoutRequest, items []models.CartItem) models.Order {
	now := c.now()
	var discount float64
	if c.opts.Discount != nil {
		discount = c.opts.Discount(items)
	}
	totals := Price(items, discount)

	lines := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
			Size:      it.Size,
			Color:     it.Color,
		})
	}

	name := req.Shipping.FullName
	if name == "" {
		name = user.DisplayName
	}
	email := req.Shipping.Email
	if email == "" {
		email = user.Email
	}
	source := "web"
	if req.DirectBuy != nil {
		source = "direct_buy"
	}
	method := req.Payment.Method
	if method == "" {
		method = "card"
	}

	return models.Order{
		ID:          id,
		OrderNumber: "ORD-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8]),
		Customer: models.Customer{
			ID:          user.ID,
			DisplayName: name,
			Email:       email,
			Phone:       req.Shipping.Phone,
		},
		Items:       lines,
		Subtotal:    totals.Subtotal,
		Shipping:    totals.Shipping,
		Tax:         totals.Tax,
		Discount:    totals.Discount,
		TotalAmount: totals.Total,
		Status:      models.StatusPending,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusPending, Timestamp: now, Note: "Order placed", UpdatedBy: user.ID},
		},
		ShippingAddress: req.Shipping.Address(),
		BillingAddress:  req.Shipping.Address(),
		Priority:        "normal",
		Source:          source,
		PaymentMethod:   method,
		PaymentStatus:   "pending",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (c *Checkout) clearCart(uid string, req CheckoutRequest) {
	if req.DirectBuy == nil {
		c.carts.Clear(uid)
	}
}

// afterCreate announces an order that reached the store.
func (c *Checkout) afterCreate(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ev := models.OrderEvent{OrderID: order.ID, Type: "created", Status: order.Status, Total: order.TotalAmount, Occurred: c.now()}
	if err := c.opts.Events.PublishOrderEvent(ctx, ev); err != nil {
		c.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order event")
	}
	if c.opts.Mailer == nil || order.Customer.Email == "" {
		return
	}
	go func() {
		if err := c.opts.Mailer.SendOrderConfirmationEmail(order); err != nil {
			c.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to send confirmation email")
		}
	}()
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
