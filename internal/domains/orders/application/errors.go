package application

import (
	"errors"
	"fmt"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

// ErrInvalidInput signals the request violated a domain invariant. Typed
// reservation and transition errors pass through verbatim so channels can
// tell "out of stock" from "try again" from caller bugs.
var ErrInvalidInput = errors.New("invalid order input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidType) ||
		errors.Is(err, domain.ErrNoLines) ||
		errors.Is(err, domain.ErrInvalidLine) ||
		errors.Is(err, domain.ErrInvalidStoreID) ||
		errors.Is(err, domain.ErrInvalidCustomerID) ||
		errors.Is(err, domain.ErrMissingDeliveryInfo) ||
		errors.Is(err, domain.ErrUnexpectedDelivery) ||
		errors.Is(err, domain.ErrInvalidPaymentStatus) ||
		errors.Is(err, domain.ErrPaymentRequired) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
