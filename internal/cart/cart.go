package cart

import "strings"

// Amount is a money value in the smallest currency unit.
type Amount int64

// OrderType describes how the order will be served.
type OrderType string

const (
	OrderDineIn   OrderType = "dine-in"
	OrderDelivery OrderType = "delivery"
)

// FallbackImageURL replaces a missing line image.
const FallbackImageURL = "https://images.cartsync.local/placeholder-dish.png"

// DefaultShippingFee is the flat delivery fee charged on a non-empty cart.
const DefaultShippingFee Amount = 15000

// Snapshot is the canonical cart as last reported by the remote store.
type Snapshot struct {
	ID              string    `json:"id,omitempty"`
	OrderType       OrderType `json:"orderType"`
	CustomerName    string    `json:"customerName"`
	CustomerPhone   string    `json:"customerPhone"`
	DeliveryAddress string    `json:"deliveryAddress"`
	DeliveryNote    string    `json:"deliveryNote"`
	Items           []Line    `json:"items"`
}

// Line is a single menu item in the cart.
type Line struct {
	ID          string `json:"id"`
	MenuItemID  string `json:"menuItemId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	Quantity    int    `json:"quantity"`
	Price       Amount `json:"price"`
	Subtotal    Amount `json:"subtotal"`
}

// DeliveryDetails is the payload accepted by the delivery-save operation.
type DeliveryDetails struct {
	OrderType       OrderType `json:"orderType"`
	CustomerName    string    `json:"customerName"`
	CustomerPhone   string    `json:"customerPhone"`
	DeliveryAddress string    `json:"deliveryAddress"`
	DeliveryNote    string    `json:"deliveryNote"`
}

// Normalize returns a copy of the snapshot with derived line fields rebuilt.
// Lines with a non-positive quantity are dropped.
func Normalize(s Snapshot) Snapshot {
	out := s
	out.Items = make([]Line, 0, len(s.Items))
	for _, line := range s.Items {
		if line.Quantity < 1 {
			continue
		}
		if strings.TrimSpace(line.ImageURL) == "" {
			line.ImageURL = FallbackImageURL
		}
		line.Subtotal = LineSubtotal(line)
		out.Items = append(out.Items, line)
	}
	return out
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Items = CloneLines(s.Items)
	return out
}

// CloneLines copies a line slice, preserving nil for empty input.
func CloneLines(items []Line) []Line {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Line, len(items))
	copy(dup, items)
	return dup
}

// Find returns the index of the line with the given id, or -1.
func Find(items []Line, id string) int {
	for i, line := range items {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// Details extracts the delivery fields from a snapshot.
func (s Snapshot) Details() DeliveryDetails {
	return DeliveryDetails{
		OrderType:       s.OrderType,
		CustomerName:    s.CustomerName,
		CustomerPhone:   s.CustomerPhone,
		DeliveryAddress: s.DeliveryAddress,
		DeliveryNote:    s.DeliveryNote,
	}
}
