package repository

import (
	"context"

	"github.com/google/uuid"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

var (
	ErrProductNotFound      = inErrors.NotFound("product not found")
	ErrProductAlreadyExists = inErrors.Conflict("product already exists")
)

type ProductRepository interface {
	InsertProduct(c context.Context, param request.Product) (response.Product, error)
	FindProducts(c context.Context) ([]response.Product, error)
	FindProductByID(c context.Context, id uuid.UUID) (response.Product, error)
}
