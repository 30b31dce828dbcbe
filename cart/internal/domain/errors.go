package domain

import (
	inErrors "github.com/Alturino/storefront/internal/errors"
)

var (
	ErrMissingOwner      = inErrors.Validation("cart requires either a user id or a session id")
	ErrAmbiguousOwner    = inErrors.Validation("cart cannot be owned by both a user and a session")
	ErrMissingProductID  = inErrors.Validation("product id is required")
	ErrInvalidQuantity   = inErrors.Validation("quantity must be at least 1")
	ErrNegativeQuantity  = inErrors.Validation("quantity must not be negative")
	ErrInvalidPrice      = inErrors.Validation("price must be greater than 0")
	ErrMissingUserID     = inErrors.Validation("user id is required")
	ErrItemNotFound      = inErrors.Conflict("product is not in the cart")
	ErrAlreadyUserOwned  = inErrors.Conflict("cart is already owned by a user")
	ErrInvalidCartID     = inErrors.Validation("cart id is required")
	ErrDuplicateCartItem = inErrors.Validation("cart contains duplicate product entries")
)
