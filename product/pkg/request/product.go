package request

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	Name     string          `validate:"required,notblank" json:"name"`
	Price    decimal.Decimal `validate:"price"             json:"price"`
	Quantity int             `validate:"gte=0"             json:"quantity"`
}
