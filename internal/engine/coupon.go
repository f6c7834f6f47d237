package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
	"github.com/five82/cartsync/internal/notify"
)

// ApplyCoupon validates code and, on success, replaces any previous discount.
// The returned result carries the discount that took effect after clamping to
// the current subtotal.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) (coupon.Result, error) {
	if !e.auth.RequireAuth() {
		e.store.CouponFailure("Sign in to use a coupon")
		return coupon.Result{}, ErrUnauthenticated
	}

	normalized := coupon.Normalize(code)
	if normalized == "" {
		e.store.CouponFailure("Enter a coupon code")
		e.notifier.Notify(notify.Error, "Coupon", "Enter a coupon code")
		return coupon.Result{}, coupon.ErrEmptyCode
	}

	e.store.CouponRequest(normalized)
	v := e.store.View()
	quote := coupon.Quote{Subtotal: v.Subtotal, ShippingFee: v.ShippingFee}

	res, err := e.coupons.Validate(ctx, normalized, quote)
	if err != nil {
		msg := fmt.Sprintf("Could not check %s: %v", normalized, err)
		if errors.Is(err, coupon.ErrInvalidCode) {
			msg = fmt.Sprintf("%s is invalid or expired", normalized)
		}
		e.logger.Info("coupon rejected", zap.String("code", normalized), zap.Error(err))
		e.store.CouponFailure(msg)
		e.notifier.Notify(notify.Error, "Coupon not applied", msg)
		return coupon.Result{}, err
	}

	msg := res.Message
	if msg == "" {
		msg = "Coupon applied"
	}
	res.Discount = e.store.CouponSuccess(normalized, res.Discount, msg)
	res.Code = normalized
	res.Message = msg

	e.logger.Info("coupon applied",
		zap.String("code", normalized),
		zap.Int64("discount", int64(res.Discount)))
	e.notifier.Notify(notify.Success, "Coupon applied",
		fmt.Sprintf("%s: %s (-%s)", normalized, msg, cart.FormatAmount(res.Discount)))
	return res, nil
}
