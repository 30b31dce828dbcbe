package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is owned by exactly one of a user or an anonymous session. Line items
// keep insertion order and hold at most one entry per product.
type Cart struct {
	id        uuid.UUID
	userID    string
	sessionID string
	items     []Item
	createdAt time.Time
	updatedAt time.Time
}

func New(userID, sessionID string) (*Cart, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Cart{
		id:        uuid.New(),
		userID:    userID,
		sessionID: sessionID,
		items:     []Item{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

func NewForSession(sessionID string) (*Cart, error) {
	return New("", sessionID)
}

func NewForUser(userID string) (*Cart, error) {
	return New(userID, "")
}

// Restore rebuilds a persisted cart without touching its timestamps.
func Restore(
	id uuid.UUID,
	userID, sessionID string,
	items []Item,
	createdAt, updatedAt time.Time,
) (*Cart, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidCartID
	}
	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	restored := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, ErrMissingProductID
		}
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if !item.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		if _, ok := seen[item.ProductID]; ok {
			return nil, ErrDuplicateCartItem
		}
		seen[item.ProductID] = struct{}{}
		restored = append(restored, item)
	}
	return &Cart{
		id:        id,
		userID:    userID,
		sessionID: sessionID,
		items:     restored,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func validateOwner(userID, sessionID string) error {
	switch {
	case userID == "" && sessionID == "":
		return ErrMissingOwner
	case userID != "" && sessionID != "":
		return ErrAmbiguousOwner
	}
	return nil
}

func (c *Cart) ID() uuid.UUID        { return c.id }
func (c *Cart) UserID() string       { return c.userID }
func (c *Cart) SessionID() string    { return c.sessionID }
func (c *Cart) IsSessionCart() bool  { return c.userID == "" }
func (c *Cart) CreatedAt() time.Time { return c.createdAt }
func (c *Cart) UpdatedAt() time.Time { return c.updatedAt }

func (c *Cart) touch() {
	c.updatedAt = time.Now().UTC()
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem sums quantities for a product already in the cart. The existing
// line keeps its original price.
func (c *Cart) AddItem(productID string, quantity int, price decimal.Decimal) error {
	if strings.TrimSpace(productID) == "" {
		return ErrMissingProductID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return ErrInvalidPrice
	}

	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		c.items = append(c.items, Item{ProductID: productID, Price: price, Quantity: quantity})
	}
	c.touch()
	return nil
}

func (c *Cart) RemoveItem(productID string) error {
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("failed removing productId=%s with error=%w", productID, ErrItemNotFound)
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.touch()
	return nil
}

// UpdateItemQuantity overwrites the quantity; zero removes the line.
func (c *Cart) UpdateItemQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("failed updating productId=%s with error=%w", productID, ErrItemNotFound)
	}
	if quantity == 0 {
		return c.RemoveItem(productID)
	}
	c.items[i].Quantity = quantity
	c.touch()
	return nil
}

func (c *Cart) Clear() {
	c.items = []Item{}
	c.touch()
}

// TransferToUser re-owns a session cart. There is no way back.
func (c *Cart) TransferToUser(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrMissingUserID
	}
	if !c.IsSessionCart() {
		return ErrAlreadyUserOwned
	}
	c.userID = userID
	c.sessionID = ""
	c.touch()
	return nil
}

// MergeWith adds every line of other into c. other is not modified.
func (c *Cart) MergeWith(other *Cart) {
	if other == nil || other.IsEmpty() {
		return
	}
	for _, item := range other.items {
		if i := c.indexOf(item.ProductID); i >= 0 {
			c.items[i].Quantity += item.Quantity
			continue
		}
		c.items = append(c.items, item)
	}
	c.touch()
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []Item {
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) UniqueItems() int {
	return len(c.items)
}

func (c *Cart) Quantity(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) HasItem(productID string) bool {
	return c.indexOf(productID) >= 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

type itemJSON struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type cartJSON struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []itemJSON `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	items := make([]itemJSON, len(c.items))
	for i, item := range c.items {
		items[i] = itemJSON(item)
	}
	return json.Marshal(cartJSON{
		ID:        c.id,
		UserID:    c.userID,
		SessionID: c.sessionID,
		Items:     items,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	})
}

// UnmarshalJSON re-checks every invariant, so a corrupt blob never yields a cart.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make([]Item, len(raw.Items))
	for i, item := range raw.Items {
		items[i] = Item(item)
	}
	restored, err := Restore(raw.ID, raw.UserID, raw.SessionID, items, raw.CreatedAt, raw.UpdatedAt)
	if err != nil {
		return err
	}
	*c = *restored
	return nil
}
