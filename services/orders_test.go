package services

import (
	"context"
	"testing"
	"time"

	"go-storefront/errs"
	"go-storefront/models"
	"go-storefront/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func seedOrders(t *testing.T, coll store.Collection[models.Order]) {
	t.Helper()
	ctx := context.Background()
	orders := []models.Order{
		{ID: "o1", OrderNumber: "ORD-AAA111", Customer: models.Customer{ID: "c1", DisplayName: "Ann Lee", Email: "ann@shop.test"},
			Status: models.StatusPending, TotalAmount: 20, CreatedAt: day.Add(-48 * time.Hour),
			StatusHistory: []models.StatusChange{{Status: models.StatusPending, Timestamp: day.Add(-48 * time.Hour)}}},
		{ID: "o2", OrderNumber: "ORD-BBB222", Customer: models.Customer{ID: "c2", DisplayName: "Bo Chan", Email: "bo@shop.test"},
			Status: models.StatusShipped, TotalAmount: 50, CreatedAt: day.Add(-24 * time.Hour)},
		{ID: "o3", OrderNumber: "ORD-CCC333", Customer: models.Customer{ID: "c1", DisplayName: "Ann Lee", Email: "ann@shop.test"},
			Status: models.StatusDelivered, TotalAmount: 30, CreatedAt: day.Add(2 * time.Hour)},
		{ID: "o4", OrderNumber: "ORD-DDD444", Customer: models.Customer{ID: "c3", DisplayName: "Cy Diaz", Email: "cy@shop.test"},
			Status: models.StatusRefunded, TotalAmount: 100, CreatedAt: day.Add(3 * time.Hour)},
	}
	for _, o := range orders {
		require.NoError(t, coll.Insert(ctx, o))
	}
}

func newTestOrders(t *testing.T, opts OrdersOptions) (*Orders, store.Collection[models.Order], *recordingNotifier) {
	t.Helper()
	coll := newTestDB(t).Orders
	seedOrders(t, coll)
	n := &recordingNotifier{}
	o := NewOrders(coll, n, zerolog.Nop(), opts)
	require.NoError(t, o.FetchOrders(context.Background()))
	return o, coll, n
}

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFetchOrdersNewestFirst(t *testing.T) {
	o, _, _ := newTestOrders(t, OrdersOptions{})
	assert.Equal(t, []string{"o4", "o3", "o2", "o1"}, ids(o.Orders()))
	assert.False(t, o.Loading())
	assert.Empty(t, o.LastError())
}

func TestFetchOrdersFailureKeepsState(t *testing.T) {
	coll := &flakyCollection[models.Order]{Collection: newTestDB(t).Orders}
	seedOrders(t, coll)
	n := &recordingNotifier{}
	o := NewOrders(coll, n, zerolog.Nop(), OrdersOptions{})
	require.NoError(t, o.FetchOrders(context.Background()))

	coll.setDown(true)
	err := o.FetchOrders(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnavailable))
	assert.Len(t, o.Orders(), 4)
	assert.Equal(t, "Failed to fetch orders", o.LastError())
	assert.Equal(t, []string{"Failed to fetch orders"}, n.Errors())
}

func TestFilterOrders(t *testing.T) {
	o, _, _ := newTestOrders(t, OrdersOptions{})

	tests := []struct {
		name   string
		filter OrderFilter
		want   []string
	}{
		{"no filter", OrderFilter{}, []string{"o4", "o3", "o2", "o1"}},
		{"status", OrderFilter{Status: models.StatusShipped}, []string{"o2"}},
		{"search name case-insensitive", OrderFilter{Search: "ann LEE"}, []string{"o3", "o1"}},
		{"search order number", OrderFilter{Search: "ccc"}, []string{"o3"}},
		{"search email", OrderFilter{Search: "bo@"}, []string{"o2"}},
		{"status and search", OrderFilter{Status: models.StatusPending, Search: "ann"}, []string{"o1"}},
		{"inclusive range", OrderFilter{Range: models.DateRange{From: day.Add(-24 * time.Hour), To: day.Add(2 * time.Hour)}}, []string{"o3", "o2"}},
		{"open-ended range", OrderFilter{Range: models.DateRange{From: day}}, []string{"o4", "o3"}},
		{"no match", OrderFilter{Search: "nobody"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(o.FilterOrders(tt.filter)))
		})
	}
}

func TestFilterOrdersResultsSatisfyPredicate(t *testing.T) {
	o, _, _ := newTestOrders(t, OrdersOptions{})
	for _, status := range models.AllOrderStatuses {
		for _, ord := range o.FilterOrders(OrderFilter{Status: status, Search: "shop.test"}) {
			assert.Equal(t, status, ord.Status)
			assert.Contains(t, ord.Customer.Email, "shop.test")
		}
	}
}

func TestGetOrderStats(t *testing.T) {
	o, _, _ := newTestOrders(t, OrdersOptions{})
	stats := o.GetOrderStats(day.Add(12 * time.Hour))

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Processing)
	assert.Equal(t, 1, stats.Shipped)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 2, stats.Today)
	assert.InDelta(t, 80.0, stats.Revenue, 0.001)
	assert.InDelta(t, 50.0, stats.AverageOrderValue, 0.001)
}

func TestGetOrderStatsEmpty(t *testing.T) {
	o := NewOrders(newTestDB(t).Orders, &recordingNotifier{}, zerolog.Nop(), OrdersOptions{})
	require.NoError(t, o.FetchOrders(context.Background()))
	assert.Equal(t, models.OrderStats{}, o.GetOrderStats(day))
}

func TestUpdateOrderStatusAppendsHistory(t *testing.T) {
	ctx := context.Background()
	o, _, n := newTestOrders(t, OrdersOptions{})

	require.NoError(t, o.UpdateOrderStatus(ctx, "o1", models.StatusShipped, "", "admin"))
	require.NoError(t, o.UpdateOrderStatus(ctx, "o1", models.StatusDelivered, "left at door", "admin"))

	got, ok := o.Order("o1")
	require.True(t, ok)
	assert.Equal(t, models.StatusDelivered, got.Status)
	require.Len(t, got.StatusHistory, 3)
	assert.Equal(t, models.StatusShipped, got.StatusHistory[1].Status)
	assert.Equal(t, "left at door", got.StatusHistory[2].Note)
	assert.Equal(t, "admin", got.StatusHistory[2].UpdatedBy)
	assert.Contains(t, n.successes, "Order status updated")
}

func TestUpdateOrderStatusOverwriteHistory(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrders(t, OrdersOptions{HistoryOverwrite: true})

	require.NoError(t, o.UpdateOrderStatus(ctx, "o1", models.StatusConfirmed, "", "admin"))
	got, _ := o.Order("o1")
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, got.StatusHistory[0].Status)

	require.NoError(t, o.UpdateOrderStatus(ctx, "o1", models.StatusShipped, "via courier", "admin"))
	got, _ = o.Order("o1")
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.StatusShipped, got.StatusHistory[0].Status)
	assert.Equal(t, "via courier", got.StatusHistory[0].Note)
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	o, coll, _ := newTestOrders(t, OrdersOptions{})
	err := o.UpdateOrderStatus(context.Background(), "o1", models.OrderStatus("lost"), "", "admin")
	assert.True(t, errs.Is(err, errs.KindInvalid))

	stored, err := coll.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUpdateOrderStatusMissingOrder(t *testing.T) {
	o, _, n := newTestOrders(t, OrdersOptions{})
	err := o.UpdateOrderStatus(context.Background(), "nope", models.StatusShipped, "", "admin")
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.Equal(t, []string{"Failed to update order status"}, n.Errors())
}

func TestUpdateOrderAppliesPatch(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrders(t, OrdersOptions{})
	priority := "urgent"
	addr := models.Address{FullName: "Ann Lee", City: "Shelbyville"}

	require.NoError(t, o.UpdateOrder(ctx, "o1", OrderPatch{Priority: &priority, ShippingAddress: &addr}))
	require.NoError(t, o.FetchOrders(ctx))

	got, ok := o.Order("o1")
	require.True(t, ok)
	assert.Equal(t, "urgent", got.Priority)
	assert.Equal(t, "Shelbyville", got.ShippingAddress.City)
	assert.True(t, got.CreatedAt.Equal(day.Add(-48*time.Hour)))
	assert.Empty(t, o.LastError())
}

func TestUpdateOrderRejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrders(t, OrdersOptions{})
	bogus := models.OrderStatus("teleported")
	loud := "loud"

	for name, patch := range map[string]OrderPatch{
		"status":   {Status: &bogus},
		"priority": {Priority: &loud},
		"empty":    {},
	} {
		err := o.UpdateOrder(ctx, "o1", patch)
		assert.Equal(t, errs.KindInvalid, errs.KindOf(err), name)
	}
	require.NoError(t, o.FetchOrders(ctx))
}

func TestDeleteOrderFiltersLocally(t *testing.T) {
	ctx := context.Background()
	o, coll, _ := newTestOrders(t, OrdersOptions{})

	// Insert behind the service's back: a re-fetch would surface it.
	require.NoError(t, coll.Insert(ctx, models.Order{ID: "o5", OrderNumber: "ORD-EEE555", CreatedAt: day}))
	require.NoError(t, o.DeleteOrder(ctx, "o2"))

	assert.Equal(t, []string{"o4", "o3", "o1"}, ids(o.Orders()))
	_, err := coll.Get(ctx, "o2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddAdminNote(t *testing.T) {
	ctx := context.Background()
	o, coll, _ := newTestOrders(t, OrdersOptions{})

	require.NoError(t, o.AddAdminNote(ctx, "o3", "gift wrap"))
	got, _ := o.Order("o3")
	assert.Equal(t, "gift wrap", got.AdminNotes)

	require.NoError(t, o.AddAdminNote(ctx, "absent", "ignored"))
	_, err := coll.Get(ctx, "absent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateShippingInfoMerges(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrders(t, OrdersOptions{})
	carrier, tracking := "UPS", "1Z999"

	require.NoError(t, o.UpdateShippingInfo(ctx, "o2", ShippingPatch{Carrier: &carrier}))
	require.NoError(t, o.UpdateShippingInfo(ctx, "o2", ShippingPatch{TrackingNumber: &tracking}))

	got, _ := o.Order("o2")
	require.NotNil(t, got.ShippingInfo)
	assert.Equal(t, "UPS", got.ShippingInfo.Carrier)
	assert.Equal(t, "1Z999", got.ShippingInfo.TrackingNumber)
	assert.Empty(t, got.ShippingInfo.TrackingURL)
}

func TestBulkUpdateStatus(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrders(t, OrdersOptions{})

	res, err := o.BulkUpdateStatus(ctx, []string{"o1", "o2"}, models.StatusCancelled)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"o1", "o2"}, res.Updated)
	assert.Len(t, o.FilterOrders(OrderFilter{Status: models.StatusCancelled}), 2)
}

func TestBulkUpdateStatusPartialFailure(t *testing.T) {
	ctx := context.Background()
	coll := &flakyCollection[models.Order]{Collection: newTestDB(t).Orders, failIDs: map[string]bool{"o2": true}}
	seedOrders(t, coll)
	o := NewOrders(coll, &recordingNotifier{}, zerolog.Nop(), OrdersOptions{})

	res, err := o.BulkUpdateStatus(ctx, []string{"o1", "o2", "o3"}, models.StatusPacked)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"o1", "o3"}, res.Updated)
	assert.Contains(t, res.Failed, "o2")

	// the single re-fetch still ran
	assert.Len(t, o.FilterOrders(OrderFilter{Status: models.StatusPacked}), 2)
}

func TestBulkUpdateStatusPartialFailurePublishesUpdated(t *testing.T) {
	ctx := context.Background()
	coll := &flakyCollection[models.Order]{Collection: newTestDB(t).Orders, failIDs: map[string]bool{"o2": true}}
	seedOrders(t, coll)
	pub := &recordingPublisher{}
	o := NewOrders(coll, &recordingNotifier{}, zerolog.Nop(), OrdersOptions{Events: pub})

	_, err := o.BulkUpdateStatus(ctx, []string{"o1", "o2", "o3"}, models.StatusPacked)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"o1", "o3"}, pub.orderIDs("status_updated"))
}

func TestFetchRacingDeleteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	coll := &gatedCollection[models.Order]{Collection: newTestDB(t).Orders}
	seedOrders(t, coll)
	o := NewOrders(coll, &recordingNotifier{}, zerolog.Nop(), OrdersOptions{})
	require.NoError(t, o.FetchOrders(ctx))

	coll.read = make(chan struct{})
	coll.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- o.FetchOrders(ctx) }()

	<-coll.read // the fetch holds a list that still contains o2
	require.NoError(t, o.DeleteOrder(ctx, "o2"))
	close(coll.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"o4", "o3", "o1"}, ids(o.Orders()))
	assert.False(t, o.Loading())
}

func TestSubscribeToOrders(t *testing.T) {
	ctx := context.Background()
	o, coll, _ := newTestOrders(t, OrdersOptions{Watcher: store.Ticker{Interval: 10 * time.Millisecond}})

	stop, err := o.SubscribeToOrders()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, coll.Insert(ctx, models.Order{ID: "o5", OrderNumber: "ORD-EEE555", CreatedAt: day}))
	assert.Eventually(t, func() bool {
		_, ok := o.Order("o5")
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestCustomerOrders(t *testing.T) {
	o, _, _ := newTestOrders(t, OrdersOptions{})
	got, err := o.CustomerOrders(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"o3", "o1"}, ids(got))
}
