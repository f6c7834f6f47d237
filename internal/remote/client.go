package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
)

var (
	// ErrUnavailable means the user has no cart session on the server.
	ErrUnavailable = errors.New("cart unavailable")
	// ErrUnauthorized means the server rejected the bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError carries a non-2xx API response.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// CartAPI is the remote cart store. It is implemented by *Client and can be
// faked in tests.
type CartAPI interface {
	FetchCart(ctx context.Context) (cart.Snapshot, error)
	SetItemQuantity(ctx context.Context, lineID string, quantity int) error
	RemoveItem(ctx context.Context, lineID string) error
	SaveDeliveryDetails(ctx context.Context, details cart.DeliveryDetails) (cart.Snapshot, error)
}

// Ensure Client implements CartAPI and coupon.Checker at compile time.
var (
	_ CartAPI        = (*Client)(nil)
	_ coupon.Checker = (*Client)(nil)
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// Client talks to the cart HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	logger    *zap.Logger
}

const (
	defaultAPIURL    = "127.0.0.1:8088"
	defaultUserAgent = "cartsync/0.1"
	requestTimeout   = 5 * time.Second
)

// NewClient builds a Client for apiURL. tokens and logger may be nil.
func NewClient(apiURL string, tokens TokenSource, logger *zap.Logger) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// FetchCart retrieves the canonical cart.
func (c *Client) FetchCart(ctx context.Context) (cart.Snapshot, error) {
	if c == nil {
		return cart.Snapshot{}, fmt.Errorf("client is nil")
	}
	var payload CartResponse
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &payload); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return cart.Snapshot{}, fmt.Errorf("fetch cart: %w", ErrUnavailable)
		}
		return cart.Snapshot{}, fmt.Errorf("fetch cart: %w", err)
	}
	return payload.Cart, nil
}

// SetItemQuantity sets the quantity of one line.
func (c *Client) SetItemQuantity(ctx context.Context, lineID string, quantity int) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(lineID) == "" {
		return fmt.Errorf("line id required")
	}
	body := QuantityRequest{Quantity: quantity}
	if err := c.do(ctx, http.MethodPatch, itemPath(lineID), body, nil); err != nil {
		return fmt.Errorf("set quantity of %s: %w", lineID, err)
	}
	return nil
}

// RemoveItem deletes one line.
func (c *Client) RemoveItem(ctx context.Context, lineID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(lineID) == "" {
		return fmt.Errorf("line id required")
	}
	if err := c.do(ctx, http.MethodDelete, itemPath(lineID), nil, nil); err != nil {
		return fmt.Errorf("remove %s: %w", lineID, err)
	}
	return nil
}

// SaveDeliveryDetails stores the customer and address fields and returns the
// updated cart.
func (c *Client) SaveDeliveryDetails(ctx context.Context, details cart.DeliveryDetails) (cart.Snapshot, error) {
	if c == nil {
		return cart.Snapshot{}, fmt.Errorf("client is nil")
	}
	var payload CartResponse
	if err := c.do(ctx, http.MethodPut, "/api/cart/delivery", details, &payload); err != nil {
		return cart.Snapshot{}, fmt.Errorf("save delivery details: %w", err)
	}
	return payload.Cart, nil
}

// ValidateCoupon asks the server to price a coupon code.
func (c *Client) ValidateCoupon(ctx context.Context, code string, q coupon.Quote) (coupon.Result, error) {
	if c == nil {
		return coupon.Result{}, fmt.Errorf("client is nil")
	}
	body := CouponRequest{Code: code, Subtotal: q.Subtotal, ShippingFee: q.ShippingFee}
	var payload CouponResponse
	if err := c.do(ctx, http.MethodPost, "/api/coupons/validate", body, &payload); err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusUnprocessableEntity) {
			return coupon.Result{}, fmt.Errorf("%q: %w", code, coupon.ErrInvalidCode)
		}
		return coupon.Result{}, fmt.Errorf("validate coupon: %w", err)
	}
	return payload.Coupon, nil
}

// itemPath escapes the line id as a single path segment.
func itemPath(lineID string) string {
	return "/api/cart/items/" + url.PathEscape(lineID)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse request path %q: %w", path, err)
	}
	reqURL := c.baseURL.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("cart api request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("cart api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 400 {
		se := &StatusError{Path: path, Code: resp.StatusCode}
		var apiErr ErrorResponse
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(data, &apiErr) == nil {
				se.Message = apiErr.Error
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrUnauthorized, se)
		}
		return se
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
