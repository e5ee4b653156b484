package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", NotFound("Order not found: o1", "o1"), KindNotFound},
		{"business rule", BusinessRule("Product is not active: p1", "p1"), KindBusinessRule},
		{"conflict", Conflict("Order already processed: o1", "o1"), KindConflict},
		{"security", Security("Invalid or expired refresh token"), KindSecurity},
		{"validation", Validation("Quantity must be positive for product: p1", "p1"), KindValidation},
		{"untyped", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("settle order: %w", Conflict("Order already processed: o1", "o1"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
}

func TestError_CarriesEntityID(t *testing.T) {
	err := BusinessRule("Insufficient stock for product 'p1': available only 1", "p1")

	var typed *Error
	assert.True(t, errors.As(err, &typed))
	assert.Equal(t, "p1", typed.EntityID)
	assert.Equal(t, "Insufficient stock for product 'p1': available only 1", err.Error())
}
