package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go-storefront/errs"
	"go-storefront/models"
	"go-storefront/store"
)

// AddItemRequest selects a product variant for the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Carts holds one transient cart per signed-in user. Carts are not persisted.
type Carts struct {
	products store.Collection[models.Product]

	mu    sync.Mutex
	carts map[string][]models.CartItem
}

func NewCarts(products store.Collection[models.Product]) *Carts {
	return &Carts{products: products, carts: make(map[string][]models.CartItem)}
}

func (c *Carts) Get(uid string) models.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Cart{UserID: uid, Items: append([]models.CartItem{}, c.carts[uid]...)}
}

// Add snapshots the product into the cart. A line for the same variant is merged.
func (c *Carts) Add(ctx context.Context, uid string, req AddItemRequest) (models.Cart, error) {
	line, err := SnapshotItem(ctx, c.products, req)
	if err != nil {
		return c.Get(uid), err
	}

	c.mu.Lock()
	items := c.carts[uid]
	merged := false
	for i := range items {
		if items[i].SameVariant(line) {
			items[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, line)
	}
	c.carts[uid] = items
	c.mu.Unlock()
	return c.Get(uid), nil
}

// SetQuantity changes the quantity of a line. Zero removes it.
func (c *Carts) SetQuantity(uid string, item models.CartItem) (models.Cart, error) {
	if item.Quantity < 0 {
		return c.Get(uid), errs.E(errs.KindInvalid, "cart.set_quantity", "Quantity must not be negative", nil)
	}
	c.mu.Lock()
	items := c.carts[uid]
	idx := slices.IndexFunc(items, item.SameVariant)
	if idx < 0 {
		c.mu.Unlock()
		return c.Get(uid), errs.E(errs.KindNotFound, "cart.set_quantity", "Item is not in the cart", nil)
	}
	if item.Quantity == 0 {
		items = slices.Delete(items, idx, idx+1)
	} else {
		items[idx].Quantity = item.Quantity
	}
	c.carts[uid] = items
	c.mu.Unlock()
	return c.Get(uid), nil
}

func (c *Carts) Remove(uid string, item models.CartItem) models.Cart {
	c.mu.Lock()
	c.carts[uid] = slices.DeleteFunc(c.carts[uid], item.SameVariant)
	c.mu.Unlock()
	return c.Get(uid)
}

func (c *Carts) Clear(uid string) {
	c.mu.Lock()
	delete(c.carts, uid)
	c.mu.Unlock()
}

// SnapshotItem resolves a product into a priced cart line.
func SnapshotItem(ctx context.Context, products store.Collection[models.Product], req AddItemRequest) (models.CartItem, error) {
	const op = "cart.add"
	if req.ProductID == "" {
		return models.CartItem{}, errs.E(errs.KindInvalid, op, "Product is required", nil)
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	p, err := products.Get(ctx, req.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return models.CartItem{}, errs.E(errs.KindNotFound, op, "Product not found", err)
	}
	if err != nil {
		return models.CartItem{}, errs.E(errs.KindUnavailable, op, "Failed to load product", err)
	}
	if req.Size != "" && len(p.Sizes) > 0 && !slices.Contains(p.Sizes, req.Size) {
		return models.CartItem{}, errs.E(errs.KindInvalid, op, "Size is not available", nil)
	}
	if req.Color != "" && len(p.Colors) > 0 && !slices.Contains(p.Colors, req.Color) {
		return models.CartItem{}, errs.E(errs.KindInvalid, op, "Color is not available", nil)
	}
	return models.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image(),
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	}, nil
}
