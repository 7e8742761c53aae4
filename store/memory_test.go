package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go-storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func newOrders(t *testing.T) Collection[models.Order] {
	t.Helper()
	return OpenMemory(NewMemoryStore()).Orders
}

func TestMemoryInsertGet(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)

	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o1", OrderNumber: "ORD-1", Status: models.StatusPending}))
	assert.ErrorIs(t, orders.Insert(ctx, models.Order{ID: "o1"}), ErrDuplicate)

	got, err := orders.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderNumber)

	_, err = orders.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMergeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)
	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o1", OrderNumber: "ORD-1", TotalAmount: 42, Status: models.StatusPending}))

	require.NoError(t, orders.Merge(ctx, "o1", bson.M{"status": models.StatusShipped, "admin_notes": "fragile"}))

	got, err := orders.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.Equal(t, "fragile", got.AdminNotes)
	assert.Equal(t, 42.0, got.TotalAmount)
	assert.Equal(t, "ORD-1", got.OrderNumber)

	assert.ErrorIs(t, orders.Merge(ctx, "missing", bson.M{"status": "x"}), ErrNotFound)
}

func TestMemoryPushAppends(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)
	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o1"}))

	first := models.StatusChange{Status: models.StatusConfirmed, Note: "a"}
	second := models.StatusChange{Status: models.StatusPacked, Note: "b"}
	require.NoError(t, orders.Push(ctx, "o1", "status_history", first))
	require.NoError(t, orders.Push(ctx, "o1", "status_history", second))

	got, err := orders.Get(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, "a", got.StatusHistory[0].Note)
	assert.Equal(t, models.StatusPacked, got.StatusHistory[1].Status)
}

func TestMemoryWhereNestedField(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)
	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o1", Customer: models.Customer{ID: "u1"}}))
	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o2", Customer: models.Customer{ID: "u2"}}))
	require.NoError(t, orders.Insert(ctx, models.Order{ID: "o3", Customer: models.Customer{ID: "u1"}}))

	mine, err := orders.Where(ctx, "customer.id", "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "o1", mine[0].ID)
	assert.Equal(t, "o3", mine[1].ID)
}

func TestMemoryDeleteAndPut(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)
	require.NoError(t, orders.Put(ctx, "o1", models.Order{ID: "o1", OrderNumber: "A"}))
	require.NoError(t, orders.Put(ctx, "o1", models.Order{ID: "o1", OrderNumber: "B"}))

	all, err := orders.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].OrderNumber)

	require.NoError(t, orders.Delete(ctx, "o1"))
	assert.ErrorIs(t, orders.Delete(ctx, "o1"), ErrNotFound)
}

func TestSettingsViewsShareCollection(t *testing.T) {
	ctx := context.Background()
	db := OpenMemory(NewMemoryStore())
	require.NoError(t, db.SiteDocs.Put(ctx, "site", models.SiteDocument{ID: "site", SiteName: "Shop"}))
	require.NoError(t, db.NavbarDocs.Put(ctx, "navbar", models.NavbarDocument{ID: "navbar", Theme: models.ThemeDark}))

	nav, err := db.NavbarDocs.Get(ctx, "navbar")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, nav.Theme)

	_, err = db.SiteDocs.Get(ctx, "navbar")
	assert.NoError(t, err, "documents in one collection are visible from every view")
}

func TestTickerWatchStops(t *testing.T) {
	var calls atomic.Int32
	stop, err := Ticker{Interval: 5 * time.Millisecond}.Watch(OrdersCollection, func() { calls.Add(1) })
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	stop()
	stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())

	_, err = Ticker{}.Watch(OrdersCollection, func() {})
	assert.Error(t, err)
}
