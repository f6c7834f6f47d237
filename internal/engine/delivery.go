package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/notify"
)

// SaveDeliveryInfo stores the customer and address fields remotely and
// replaces the local cart with the returned snapshot.
func (e *Engine) SaveDeliveryInfo(ctx context.Context, details cart.DeliveryDetails) error {
	if !e.auth.RequireAuth() {
		return ErrUnauthenticated
	}

	details = trimDetails(details)
	if err := validateDetails(details); err != nil {
		e.notifier.Notify(notify.Error, "Delivery details", err.Error())
		return err
	}

	e.store.AddressRequest()
	snap, err := e.remote.SaveDeliveryDetails(ctx, details)
	e.store.AddressDone()
	if err != nil {
		e.logger.Warn("save delivery details failed", zap.Error(err))
		e.store.Failure("Could not save delivery details: " + err.Error())
		e.notifier.Notify(notify.Error, "Delivery details not saved", err.Error())
		return err
	}

	e.store.Success(snap)
	e.notifier.Notify(notify.Success, "Delivery details saved", "")
	return nil
}

func trimDetails(d cart.DeliveryDetails) cart.DeliveryDetails {
	d.CustomerName = strings.TrimSpace(d.CustomerName)
	d.CustomerPhone = strings.TrimSpace(d.CustomerPhone)
	d.DeliveryAddress = strings.TrimSpace(d.DeliveryAddress)
	d.DeliveryNote = strings.TrimSpace(d.DeliveryNote)
	if d.OrderType == "" {
		d.OrderType = cart.OrderDelivery
	}
	return d
}

func validateDetails(d cart.DeliveryDetails) error {
	switch d.OrderType {
	case cart.OrderDineIn:
		return nil
	case cart.OrderDelivery:
		if d.CustomerPhone == "" {
			return fmt.Errorf("%w: phone is required", ErrInvalidDetails)
		}
		if d.DeliveryAddress == "" {
			return fmt.Errorf("%w: address is required", ErrInvalidDetails)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidDetails, d.OrderType)
	}
}
