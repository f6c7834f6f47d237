// Package remote provides an HTTP client for the cart API.
//
// # Overview
//
// The client is the remote cart store the engine reconciles against. It
// reads the canonical cart and issues the three write operations the engine
// needs, plus coupon validation.
//
// # API Endpoints
//
//   - GET    /api/cart                   canonical cart ({"cart": {...}})
//   - PATCH  /api/cart/items/{id}        {"quantity": N}
//   - DELETE /api/cart/items/{id}
//   - PUT    /api/cart/delivery          delivery details, returns the cart
//   - POST   /api/coupons/validate       {"code","subtotal","shippingFee"}
//
// # Request Handling
//
// Every request carries Accept: application/json, User-Agent: cartsync/0.1,
// a fresh X-Request-ID and, when the session has one, a bearer token. The
// underlying http.Client times out after 5 seconds; callers pass a context
// for cancellation.
//
// # Error Handling
//
//   - 404 on GET /api/cart becomes ErrUnavailable (no cart session yet)
//   - 401 on any endpoint wraps ErrUnauthorized
//   - 404/422 on coupon validation becomes coupon.ErrInvalidCode
//   - other 4xx/5xx responses are *StatusError with the server's message
//
// All errors are wrapped with fmt.Errorf so errors.Is and errors.As work at
// the call site.
//
// # Design Rationale
//
// No retries and no caching: the engine owns reconciliation and the user
// owns retries.
package remote
