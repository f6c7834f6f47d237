package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cartsync/internal/cart"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "TASTY50", Normalize("  tasty50 "))
	assert.Equal(t, "", Normalize("   "))
}

func TestStatic_Rules(t *testing.T) {
	v := NewStatic(0)
	q := Quote{Subtotal: 200000, ShippingFee: 15000}

	tests := []struct {
		code string
		want cart.Amount
	}{
		{"TASTY50", 50000},
		{"FREESHIP", 15000},
		{"WELCOME10", 20000},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			res, err := v.Validate(context.Background(), tt.code, q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Discount)
			assert.Equal(t, tt.code, res.Code)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestStatic_UnknownCode(t *testing.T) {
	_, err := NewStatic(0).Validate(context.Background(), "BOGUS", Quote{Subtotal: 1000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCode))
}

func TestStatic_LatencyHonoursContext(t *testing.T) {
	v := NewStatic(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := v.Validate(ctx, "TASTY50", Quote{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeChecker struct {
	res Result
	err error
}

func (f fakeChecker) ValidateCoupon(context.Context, string, Quote) (Result, error) {
	return f.res, f.err
}

func TestRemote_Delegates(t *testing.T) {
	r := Remote{Checker: fakeChecker{res: Result{Discount: 7000}}}
	res, err := r.Validate(context.Background(), "SPRING", Quote{})
	require.NoError(t, err)
	assert.Equal(t, "SPRING", res.Code)
	assert.Equal(t, cart.Amount(7000), res.Discount)

	r = Remote{Checker: fakeChecker{err: ErrInvalidCode}}
	_, err = r.Validate(context.Background(), "SPRING", Quote{})
	assert.ErrorIs(t, err, ErrInvalidCode)
}
