// Package broadcast fans site-settings changes out to every storefront instance, so a change
// saved through one instance is applied by the others.
package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"go-storefront/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Broadcaster interface {
	Publish(s models.SiteSettings) error
	// Subscribe delivers settings published by other endpoints, never this endpoint's own.
	Subscribe(fn func(models.SiteSettings)) (unsubscribe func(), err error)
}

type envelope struct {
	Origin   string              `json:"origin"`
	Settings models.SiteSettings `json:"settings"`
}

// NATS broadcasts over a NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	origin  string
}

func DialNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("storefront"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{conn: conn, subject: subject, origin: uuid.NewString()}, nil
}

func (n *NATS) Publish(s models.SiteSettings) error {
	data, err := json.Marshal(envelope{Origin: n.origin, Settings: s})
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

func (n *NATS) Subscribe(fn func(models.SiteSettings)) (func(), error) {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil || env.Origin == n.origin {
			return
		}
		fn(env.Settings)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (n *NATS) Close() {
	n.conn.Close()
}

// Hub is an in-process broadcaster. Each Endpoint acts as a separate instance.
type Hub struct {
	mu   sync.Mutex
	subs map[int]hubSub
	next int
}

type hubSub struct {
	origin string
	fn     func(models.SiteSettings)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]hubSub)}
}

func (h *Hub) Endpoint() Broadcaster {
	return &hubEndpoint{hub: h, origin: uuid.NewString()}
}

type hubEndpoint struct {
	hub    *Hub
	origin string
}

func (e *hubEndpoint) Publish(s models.SiteSettings) error {
	e.hub.mu.Lock()
	var targets []func(models.SiteSettings)
	for _, sub := range e.hub.subs {
		if sub.origin != e.origin {
			targets = append(targets, sub.fn)
		}
	}
	e.hub.mu.Unlock()

	for _, fn := range targets {
		fn(s)
	}
	return nil
}

func (e *hubEndpoint) Subscribe(fn func(models.SiteSettings)) (func(), error) {
	e.hub.mu.Lock()
	id := e.hub.next
	e.hub.next++
	e.hub.subs[id] = hubSub{origin: e.origin, fn: fn}
	e.hub.mu.Unlock()

	return func() {
		e.hub.mu.Lock()
		delete(e.hub.subs, id)
		e.hub.mu.Unlock()
	}, nil
}
