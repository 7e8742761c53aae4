package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-storefront/cache"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/store"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

// Outbox keeps orders whose remote create failed and retries them in the background until
// the store accepts them.
type Outbox struct {
	cache  *cache.Cache
	orders store.Collection[models.Order]
	logger zerolog.Logger

	// OnFlushed runs for every order that reached the store.
	OnFlushed func(models.Order)

	mu   sync.Mutex // serializes flushes
	tomb *tomb.Tomb
}

func NewOutbox(c *cache.Cache, orders store.Collection[models.Order], logger zerolog.Logger) *Outbox {
	return &Outbox{cache: c, orders: orders, logger: logger}
}

func (o *Outbox) Enqueue(order models.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := o.cache.Put(cache.OutboxBucket, order.ID, raw); err != nil {
		return fmt.Errorf("enqueue order %s: %w", order.ID, err)
	}
	o.updateGauge()
	return nil
}

// Pending returns the queued orders in id order.
func (o *Outbox) Pending() ([]models.Order, error) {
	var out []models.Order
	err := o.cache.Each(cache.OutboxBucket, func(key string, value []byte) error {
		var ord models.Order
		if err := json.Unmarshal(value, &ord); err != nil {
			o.logger.Warn().Err(err).Str("order_id", key).Msg("dropping unreadable outbox entry")
			return nil
		}
		out = append(out, ord)
		return nil
	})
	return out, err
}

// Has reports whether the order is still queued.
func (o *Outbox) Has(orderID string) bool {
	raw, err := o.cache.Get(cache.OutboxBucket, orderID)
	return err == nil && raw != nil
}

// Flush writes every queued order. An order that already exists remotely counts as
// written. It returns the number of orders removed from the queue.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.Pending()
	if err != nil {
		return 0, err
	}
	flushed := 0
	var firstErr error
	for _, ord := range pending {
		err := o.orders.Insert(ctx, ord)
		if err != nil && !errors.Is(err, store.ErrDuplicate) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := o.cache.Delete(cache.OutboxBucket, ord.ID); err != nil {
			o.logger.Warn().Err(err).Str("order_id", ord.ID).Msg("failed to dequeue order")
			continue
		}
		flushed++
		o.logger.Info().Str("order_id", ord.ID).Msg("queued order written")
		if o.OnFlushed != nil {
			o.OnFlushed(ord)
		}
	}
	o.updateGauge()
	return flushed, firstErr
}

// Start flushes every interval until Stop.
func (o *Outbox) Start(interval time.Duration) {
	t := &tomb.Tomb{}
	o.tomb = t
	t.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.Dying():
				return nil
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(t.Context(context.Background()), interval)
				if _, err := o.Flush(ctx); err != nil {
					o.logger.Warn().Err(err).Msg("outbox flush incomplete")
				}
				cancel()
			}
		}
	})
}

func (o *Outbox) Stop() {
	if o.tomb == nil {
		return
	}
	o.tomb.Kill(nil)
	_ = o.tomb.Wait()
	o.tomb = nil
}

func (o *Outbox) updateGauge() {
	n := 0
	_ = o.cache.Each(cache.OutboxBucket, func(string, []byte) error {
		n++
		return nil
	})
	metrics.OutboxPending.Set(float64(n))
}
