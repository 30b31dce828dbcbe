package request

import (
	"strings"

	"github.com/Alturino/storefront/internal/errors"
)

// Owner identifies whose cart a request targets. UserID wins when both are set.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Validate() error {
	if strings.TrimSpace(o.UserID) == "" && strings.TrimSpace(o.SessionID) == "" {
		return errors.ErrMissingOwner
	}
	return nil
}

func (o Owner) IsUser() bool {
	return strings.TrimSpace(o.UserID) != ""
}

type AddItem struct {
	ProductID string `validate:"required,notblank" json:"product_id"`
	Quantity  int    `validate:"gte=1"             json:"quantity"`
}

type UpdateItem struct {
	ProductID string `validate:"required,notblank" json:"-"`
	Quantity  int    `validate:"gte=0"             json:"quantity"`
}

type RemoveItem struct {
	ProductID string `validate:"required,notblank" json:"-"`
}

type Merge struct {
	UserID    string `validate:"required,notblank"`
	SessionID string `validate:"required,notblank"`
}
