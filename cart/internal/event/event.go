package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeItemAdded   Type = "cart.item_added"
	TypeItemRemoved Type = "cart.item_removed"
	TypeItemUpdated Type = "cart.item_updated"
	TypeCleared     Type = "cart.cleared"
	TypeDeleted     Type = "cart.deleted"
	TypeMerged      Type = "cart.merged"
)

type Event struct {
	Type       Type      `json:"type"`
	CartID     uuid.UUID `json:"cartId"`
	UserID     string    `json:"userId,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	ProductID  string    `json:"productId,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(c context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
