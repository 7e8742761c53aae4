package models

// CartItem represents an item in the cart, with the product snapshot needed to price it
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// SameVariant reports whether two lines refer to the same product, size and color.
func (c CartItem) SameVariant(o CartItem) bool {
	return c.ProductID == o.ProductID && c.Size == o.Size && c.Color == o.Color
}

// Cart represents a user's shopping cart. It lives only for the session.
type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}
