package state

import (
	"testing"
	"time"

	"github.com/five82/cartsync/internal/cart"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New(cart.DefaultShippingFee)
	s.Success(cart.Snapshot{
		ID: "cart-1",
		Items: []cart.Line{
			{ID: "a", Name: "Pho", Quantity: 2, Price: 50000},
			{ID: "b", Name: "Tea", Quantity: 1, Price: 100000},
		},
	})
	return s
}

func TestStore_InitialState(t *testing.T) {
	s := New(cart.DefaultShippingFee)
	v := s.View()
	if v.HasSnapshot || !v.InitialLoading {
		t.Fatalf("initial view = %+v, want no snapshot and initial loading", v)
	}
	if v.CouponStatus != CouponIdle {
		t.Fatalf("CouponStatus = %q, want idle", v.CouponStatus)
	}
}

func TestStore_SuccessAndViewClone(t *testing.T) {
	s := New(cart.DefaultShippingFee)
	before := time.Now()
	s.Request()
	if v := s.View(); !v.Loading || !v.InitialLoading {
		t.Fatalf("after Request view = %+v, want loading", v)
	}

	s.Success(cart.Snapshot{ID: "c", Items: []cart.Line{{ID: "a", Quantity: 4, Price: 50000}}})

	v := s.View()
	if v.Loading || v.InitialLoading || !v.HasSnapshot {
		t.Fatalf("after Success flags = %+v", v)
	}
	if v.Subtotal != 200000 || v.ShippingFee != 15000 || v.Total != 215000 {
		t.Fatalf("totals = %d/%d/%d, want 200000/15000/215000", v.Subtotal, v.ShippingFee, v.Total)
	}
	if v.Items[0].ImageURL != cart.FallbackImageURL {
		t.Fatalf("image = %q, want fallback", v.Items[0].ImageURL)
	}
	if v.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", v.LastUpdated, before)
	}

	v.Items[0].Quantity = 99
	v.Snapshot.Items[0].Quantity = 99
	again := s.View()
	if again.Items[0].Quantity != 4 || again.Snapshot.Items[0].Quantity != 4 {
		t.Fatalf("View should clone items; got %d", again.Items[0].Quantity)
	}
}

func TestStore_FailureKeepsItems(t *testing.T) {
	s := seeded(t)
	prev := s.View()

	s.Failure("network down")

	v := s.View()
	if v.Error != "network down" {
		t.Fatalf("Error = %q, want network down", v.Error)
	}
	if len(v.Items) != len(prev.Items) || v.Total != prev.Total {
		t.Fatalf("failure changed items: got %+v want %+v", v.Items, prev.Items)
	}

	s.Success(prev.Snapshot)
	if v := s.View(); v.Error != "" {
		t.Fatalf("Success should clear error, got %q", v.Error)
	}
}

func TestStore_LocalUpdateRecomputes(t *testing.T) {
	s := seeded(t)

	if !s.LocalUpdateItem("a", 3) {
		t.Fatal("LocalUpdateItem(a) = false, want true")
	}
	v := s.View()
	if v.Items[0].Quantity != 3 || v.Items[0].Subtotal != 150000 {
		t.Fatalf("line a = %+v, want qty 3 subtotal 150000", v.Items[0])
	}
	if v.Subtotal != 250000 || v.Total != 265000 {
		t.Fatalf("subtotal/total = %d/%d, want 250000/265000", v.Subtotal, v.Total)
	}
	if v.Snapshot.Items[0].Quantity != 3 {
		t.Fatalf("snapshot items not kept in step: %+v", v.Snapshot.Items)
	}

	if s.LocalUpdateItem("missing", 2) {
		t.Fatal("LocalUpdateItem(missing) = true, want false")
	}
}

func TestStore_LocalUpdateBelowOneRemoves(t *testing.T) {
	s := seeded(t)
	s.LocalUpdateItem("a", 0)

	v := s.View()
	if len(v.Items) != 1 || v.Items[0].ID != "b" {
		t.Fatalf("items = %+v, want only b", v.Items)
	}
	for _, line := range v.Items {
		if line.Quantity < 1 {
			t.Fatalf("stored non-positive quantity: %+v", line)
		}
	}
}

func TestStore_RemovingLastItemDropsShipping(t *testing.T) {
	s := seeded(t)
	s.LocalRemoveItem("a")
	s.LocalRemoveItem("b")

	v := s.View()
	if len(v.Items) != 0 {
		t.Fatalf("items = %+v, want empty", v.Items)
	}
	if v.ShippingFee != 0 || v.Total != 0 {
		t.Fatalf("shipping/total = %d/%d, want 0/0", v.ShippingFee, v.Total)
	}
}

func TestStore_DiscountReclampedWhenCartShrinks(t *testing.T) {
	s := seeded(t)
	got := s.CouponSuccess("TASTY50", 50000, "ok")
	if got != 50000 {
		t.Fatalf("CouponSuccess discount = %d, want 50000", got)
	}

	s.LocalRemoveItem("b")
	s.LocalUpdateItem("a", 1)

	v := s.View()
	if v.Subtotal != 50000 || v.Discount != 50000 {
		t.Fatalf("subtotal/discount = %d/%d", v.Subtotal, v.Discount)
	}

	s.Success(cart.Snapshot{Items: []cart.Line{{ID: "c", Quantity: 1, Price: 20000}}})
	v = s.View()
	if v.Discount != 20000 {
		t.Fatalf("Discount = %d, want clamp to 20000", v.Discount)
	}
	if v.Total != 15000 {
		t.Fatalf("Total = %d, want 15000", v.Total)
	}
}

func TestStore_CouponTransitions(t *testing.T) {
	s := seeded(t)

	s.CouponRequest("FREESHIP")
	if v := s.View(); v.CouponStatus != CouponPending || v.CouponCode != "FREESHIP" {
		t.Fatalf("after request = %q/%q", v.CouponStatus, v.CouponCode)
	}

	s.CouponSuccess("FREESHIP", 15000, "free shipping")
	s.CouponRequest("BOGUS")
	s.CouponFailure("invalid or expired")

	v := s.View()
	if v.CouponStatus != CouponFailed || v.CouponMessage != "invalid or expired" {
		t.Fatalf("after failure = %q/%q", v.CouponStatus, v.CouponMessage)
	}
	if v.Discount != 15000 {
		t.Fatalf("Discount = %d, want previous 15000 kept", v.Discount)
	}
}

func TestStore_StatusFlags(t *testing.T) {
	s := seeded(t)

	s.AddressRequest()
	s.SyncPending(true)
	s.SyncStart()
	v := s.View()
	if !v.AddressSaving || !v.PendingSync || !v.SyncingChanges {
		t.Fatalf("flags = %+v, want all set", v)
	}

	s.AddressDone()
	s.SyncPending(false)
	s.SyncDone()
	v = s.View()
	if v.AddressSaving || v.PendingSync || v.SyncingChanges {
		t.Fatalf("flags = %+v, want all cleared", v)
	}
}
