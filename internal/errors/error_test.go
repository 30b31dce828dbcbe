package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "validation", err: Validation("bad"), expected: KindValidation},
		{name: "wrapped not found", err: fmt.Errorf("failed finding with error=%w", NotFound("missing")), expected: KindNotFound},
		{name: "downstream", err: Downstream("product service unavailable", errors.New("dial tcp")), expected: KindDownstream},
		{name: "plain error", err: errors.New("boom"), expected: KindInternal},
		{name: "nil", err: nil, expected: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed saving cart", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed saving cart: connection refused", err.Error())
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("pq: relation does not exist")))
	assert.Equal(t, "failed saving cart", PublicMessage(Internal("failed saving cart", errors.New("pq"))))
	assert.Equal(t, "quantity must be at least 1", PublicMessage(Validation("quantity must be at least 1")))
}

func TestKindMarshalText(t *testing.T) {
	text, err := KindNotFound.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "not_found", string(text))
}
