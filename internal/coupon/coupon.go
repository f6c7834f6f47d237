// Package coupon validates promotional codes and computes their discount.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/cartsync/internal/cart"
)

var (
	ErrEmptyCode   = errors.New("coupon code is required")
	ErrInvalidCode = errors.New("coupon code is invalid or expired")
)

// DefaultLatency models the round trip of a validation call.
const DefaultLatency = 600 * time.Millisecond

// Quote is the cart context a code is validated against.
type Quote struct {
	Subtotal    cart.Amount `json:"subtotal"`
	ShippingFee cart.Amount `json:"shippingFee"`
}

// Result is an accepted code.
type Result struct {
	Code     string      `json:"code"`
	Discount cart.Amount `json:"discount"`
	Message  string      `json:"message"`
}

// Validator checks a normalized code against a quote.
type Validator interface {
	Validate(ctx context.Context, code string, q Quote) (Result, error)
}

// Normalize trims and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RuleKind selects how a rule computes its discount.
type RuleKind int

const (
	PercentOff RuleKind = iota
	FreeShipping
	FlatOff
)

// Rule is one entry of a static rule table.
type Rule struct {
	Kind  RuleKind
	Value int64 // percent for PercentOff, amount for FlatOff
}

// DefaultRules is the built-in promotion table.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"WELCOME10": {Kind: PercentOff, Value: 10},
		"FREESHIP":  {Kind: FreeShipping},
		"TASTY50":   {Kind: FlatOff, Value: 50000},
	}
}

// Static validates codes against a fixed rule table after a simulated delay.
type Static struct {
	Rules   map[string]Rule
	Latency time.Duration
}

// NewStatic returns a Static validator over DefaultRules.
func NewStatic(latency time.Duration) *Static {
	return &Static{Rules: DefaultRules(), Latency: latency}
}

// Validate implements Validator.
func (s *Static) Validate(ctx context.Context, code string, q Quote) (Result, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	rule, ok := s.Rules[code]
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", code, ErrInvalidCode)
	}

	var res Result
	res.Code = code
	switch rule.Kind {
	case PercentOff:
		res.Discount = cart.Percent(q.Subtotal, rule.Value)
		res.Message = fmt.Sprintf("%d%% off your order", rule.Value)
	case FreeShipping:
		res.Discount = q.ShippingFee
		res.Message = "Free shipping applied"
	case FlatOff:
		res.Discount = cart.Amount(rule.Value)
		res.Message = fmt.Sprintf("%s off your order", cart.FormatAmount(cart.Amount(rule.Value)))
	default:
		return Result{}, fmt.Errorf("%q: %w", code, ErrInvalidCode)
	}
	return res, nil
}

// Checker is the remote collaborator that validates codes.
type Checker interface {
	ValidateCoupon(ctx context.Context, code string, q Quote) (Result, error)
}

// Remote delegates validation to the cart API.
type Remote struct {
	Checker Checker
}

// Validate implements Validator.
func (r Remote) Validate(ctx context.Context, code string, q Quote) (Result, error) {
	if r.Checker == nil {
		return Result{}, fmt.Errorf("coupon checker is nil")
	}
	res, err := r.Checker.ValidateCoupon(ctx, code, q)
	if err != nil {
		return Result{}, err
	}
	if res.Code == "" {
		res.Code = code
	}
	return res, nil
}
