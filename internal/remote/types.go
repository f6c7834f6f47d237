package remote

import (
	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
)

// CartResponse mirrors the envelope returned by the cart endpoints.
type CartResponse struct {
	Cart cart.Snapshot `json:"cart"`
}

// QuantityRequest is the body of PATCH /api/cart/items/{id}.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CouponRequest is the body of POST /api/coupons/validate.
type CouponRequest struct {
	Code        string      `json:"code"`
	Subtotal    cart.Amount `json:"subtotal"`
	ShippingFee cart.Amount `json:"shippingFee"`
}

// CouponResponse mirrors a successful validation.
type CouponResponse struct {
	Coupon coupon.Result `json:"coupon"`
}

// ErrorResponse is the body the API sends with a 4xx/5xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
