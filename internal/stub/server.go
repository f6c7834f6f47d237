// Package stub serves an in-memory cart API for local development and
// integration tests.
package stub

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
)

// MenuItem seeds a cart line.
type MenuItem struct {
	ID          string
	Name        string
	Description string
	Category    string
	ImageURL    string
	Price       cart.Amount
}

// DefaultMenu is a small menu used to seed carts.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{ID: "m-pho", Name: "Pho bo", Description: "Beef noodle soup", Category: "Noodles", Price: 55000},
		{ID: "m-banhmi", Name: "Banh mi", Description: "Grilled pork baguette", Category: "Bread", Price: 35000},
		{ID: "m-tea", Name: "Tra dao", Description: "Peach iced tea", Category: "Drinks", Price: 25000},
	}
}

type failure struct {
	status  int
	message string
}

// Server is an in-memory cart store keyed by bearer token.
type Server struct {
	mu       sync.Mutex
	carts    map[string]*cart.Snapshot
	failures map[string]failure // line id -> next write fails
	coupons  coupon.Validator
	logger   *zap.Logger
	engine   *gin.Engine
}

// New returns a stub with no carts.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		carts:    make(map[string]*cart.Snapshot),
		failures: make(map[string]failure),
		coupons:  coupon.NewStatic(0),
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Seed creates a cart for token holding one of each item with the given
// quantities, and returns it.
func (s *Server) Seed(token string, menu []MenuItem, quantities ...int) cart.Snapshot {
	snap := &cart.Snapshot{ID: uuid.NewString(), OrderType: cart.OrderDelivery}
	for i, m := range menu {
		qty := 1
		if i < len(quantities) {
			qty = quantities[i]
		}
		if qty < 1 {
			continue
		}
		snap.Items = append(snap.Items, cart.Line{
			ID:          uuid.NewString(),
			MenuItemID:  m.ID,
			Name:        m.Name,
			Description: m.Description,
			Category:    m.Category,
			ImageURL:    m.ImageURL,
			Quantity:    qty,
			Price:       m.Price,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[token] = snap
	return cart.Normalize(*snap)
}

// FailNext makes the next write to lineID answer with status.
func (s *Server) FailNext(lineID string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[lineID] = failure{status: status, message: message}
}

// Cart returns the stored cart for token.
func (s *Server) Cart(token string) (cart.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[token]
	if !ok {
		return cart.Snapshot{}, false
	}
	return cart.Normalize(*c), true
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	// Route on the escaped path so a line id may contain a slash.
	r.UseRawPath = true
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api", s.requireToken())
	api.GET("/cart", s.getCart)
	api.PATCH("/cart/items/:id", s.setQuantity)
	api.DELETE("/cart/items/:id", s.removeItem)
	api.PUT("/cart/delivery", s.saveDelivery)
	api.POST("/coupons/validate", s.validateCoupon)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("stub request",
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		c.Set("token", token)
		c.Next()
	}
}

// lookup returns the caller's cart; callers hold s.mu.
func (s *Server) lookup(c *gin.Context) (*cart.Snapshot, bool) {
	snap, ok := s.carts[c.GetString("token")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cart for this session"})
		return nil, false
	}
	return snap, true
}

// takeFailure consumes an injected failure; callers hold s.mu.
func (s *Server) takeFailure(c *gin.Context, lineID string) bool {
	f, ok := s.failures[lineID]
	if !ok {
		return false
	}
	delete(s.failures, lineID)
	c.JSON(f.status, gin.H{"error": f.message})
	return true
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart.Normalize(*snap)})
}

type quantityBody struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (s *Server) setQuantity(c *gin.Context) {
	var body quantityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.lookup(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if s.takeFailure(c, id) {
		return
	}
	idx := cart.Find(snap.Items, id)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "line not found"})
		return
	}
	snap.Items[idx].Quantity = body.Quantity
	c.Status(http.StatusNoContent)
}

func (s *Server) removeItem(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.lookup(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if s.takeFailure(c, id) {
		return
	}
	idx := cart.Find(snap.Items, id)
	if idx < 0 {
		// already gone; deletes are idempotent
		c.Status(http.StatusNoContent)
		return
	}
	snap.Items = append(snap.Items[:idx], snap.Items[idx+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *Server) saveDelivery(c *gin.Context) {
	var body cart.DeliveryDetails
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.lookup(c)
	if !ok {
		return
	}
	if body.OrderType != "" {
		snap.OrderType = body.OrderType
	}
	snap.CustomerName = body.CustomerName
	snap.CustomerPhone = body.CustomerPhone
	snap.DeliveryAddress = body.DeliveryAddress
	snap.DeliveryNote = body.DeliveryNote
	c.JSON(http.StatusOK, gin.H{"cart": cart.Normalize(*snap)})
}

type couponBody struct {
	Code        string      `json:"code" binding:"required"`
	Subtotal    cart.Amount `json:"subtotal"`
	ShippingFee cart.Amount `json:"shippingFee"`
}

func (s *Server) validateCoupon(c *gin.Context) {
	var body couponBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := coupon.Normalize(body.Code)
	res, err := s.coupons.Validate(c.Request.Context(), code, coupon.Quote{Subtotal: body.Subtotal, ShippingFee: body.ShippingFee})
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCode) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid or expired"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": res})
}
