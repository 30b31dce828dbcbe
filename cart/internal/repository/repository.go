package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Alturino/storefront/cart/internal/domain"
	inErrors "github.com/Alturino/storefront/internal/errors"
)

var (
	ErrCartNotFound   = inErrors.NotFound("cart not found")
	ErrCartOwnerTaken = inErrors.Conflict("owner already has a cart")
)

type CartRepository interface {
	FindByUserID(c context.Context, userID string) (*domain.Cart, error)
	FindBySessionID(c context.Context, sessionID string) (*domain.Cart, error)
	Save(c context.Context, cart *domain.Cart) error
	Update(c context.Context, cart *domain.Cart) error
	DeleteCart(c context.Context, cartID uuid.UUID) error
}
