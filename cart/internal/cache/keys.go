package cache

import (
	"github.com/google/uuid"
)

const (
	prefixCart         = "cart:"
	prefixUserCart     = "cart:user:"
	prefixSessionCart  = "cart:session:"
	patternSessionCart = prefixSessionCart + "*"
)

func cartKey(cartID uuid.UUID) string {
	return prefixCart + cartID.String()
}

func userCartKey(userID string) string {
	return prefixUserCart + userID
}

func sessionCartKey(sessionID string) string {
	return prefixSessionCart + sessionID
}
