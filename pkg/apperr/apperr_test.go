package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindOfWrapped(t *testing.T) {
	base := NoStock("inventory.Reserve", "p-1", 3)
	wrapped := fmt.Errorf("checkout: %w", base)

	assert.Equal(t, OutOfStock, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, OutOfStock))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, Internal))

	var e *Error
	if assert.ErrorAs(t, wrapped, &e) {
		assert.Equal(t, "p-1", e.ProductID)
		assert.EqualValues(t, 3, e.Available)
	}
}

func TestIsMatchesKindAndProduct(t *testing.T) {
	err := Unavailable("op", "p-9")

	assert.ErrorIs(t, err, &Error{Kind: ProductUnavailable})
	assert.ErrorIs(t, err, &Error{Kind: ProductUnavailable, ProductID: "p-9"})
	assert.NotErrorIs(t, err, &Error{Kind: ProductUnavailable, ProductID: "p-1"})
	assert.NotErrorIs(t, err, &Error{Kind: OutOfStock})
}

func TestGRPCStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{NotFoundf("op", "cart not found"), codes.NotFound},
		{Invalidf("op", "empty batch"), codes.InvalidArgument},
		{Unavailable("op", "p"), codes.FailedPrecondition},
		{NoStock("op", "p", 0), codes.ResourceExhausted},
		{E(EmptyCart, "op", "cart is empty"), codes.FailedPrecondition},
		{Wrap(TransientStorage, "op", errors.New("deadlock")), codes.Unavailable},
		{Wrap(Internal, "op", errors.New("secret dsn")), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(KindOf(tt.err).String(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.err))
		})
	}

	st, _ := status.FromError(Wrap(Internal, "op", errors.New("secret dsn")))
	assert.Equal(t, "internal error", st.Message())
}

func TestErrorString(t *testing.T) {
	err := NoStock("inventory.Reserve", "p-1", 2)
	assert.Equal(t, "inventory.Reserve: out_of_stock: not enough stock (product p-1, available 2)", err.Error())

	assert.True(t, IsRetryable(Wrap(TransientStorage, "checkout", errors.New("x"))))
	assert.False(t, IsRetryable(err))
}
