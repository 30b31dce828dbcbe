package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Items       []CartItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UniqueItems int             `json:"unique_items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CartData is the data member of every cart-returning endpoint.
type CartData struct {
	Cart Cart `json:"cart"`
}

type SessionStatus struct {
	SessionID        string  `json:"session_id"`
	Active           bool    `json:"active"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

type SessionExtended struct {
	SessionID string `json:"session_id"`
	Extended  bool   `json:"extended"`
}

// EmptyCart is the placeholder served when no cart can be loaded.
func EmptyCart() Cart {
	return Cart{Items: []CartItem{}, TotalAmount: decimal.Zero}
}
