package response

import (
	"github.com/Alturino/storefront/cart/internal/domain"
)

func FromDomain(cart *domain.Cart) Cart {
	items := cart.Items()
	res := Cart{
		ID:          cart.ID(),
		UserID:      cart.UserID(),
		SessionID:   cart.SessionID(),
		Items:       make([]CartItem, 0, len(items)),
		TotalItems:  cart.TotalItems(),
		TotalAmount: cart.TotalAmount(),
		UniqueItems: cart.UniqueItems(),
		CreatedAt:   cart.CreatedAt(),
		UpdatedAt:   cart.UpdatedAt(),
	}
	for _, item := range items {
		res.Items = append(res.Items, CartItem{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return res
}
