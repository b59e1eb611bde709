package http

import (
	"errors"

	invapp "github.com/dealgrid/ordercore/internal/domains/inventory/application"
	invdomain "github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	invports "github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	ordersapp "github.com/dealgrid/ordercore/internal/domains/orders/application"
	ordersdomain "github.com/dealgrid/ordercore/internal/domains/orders/domain"
	ordersports "github.com/dealgrid/ordercore/internal/domains/orders/ports"
	apperrors "github.com/dealgrid/ordercore/internal/shared/errors"
)

// problemFromError maps the coordinator's typed errors onto problem-details
// responses. Stock shortage and lock contention map to different statuses so
// channels can show "out of stock" versus "try again".
func problemFromError(err error) (apperrors.ProblemDetail, bool) {
	var insufficient invdomain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return apperrors.ErrInsufficientInventory.
			WithDetail(insufficient.Error()).
			WithExtension("item_id", insufficient.ItemID).
			WithExtension("requested", insufficient.Requested).
			WithExtension("available", insufficient.Available), true
	}
	var invalid ordersdomain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return apperrors.ErrInvalidTransition.
			WithDetail(invalid.Error()).
			WithExtension("from", string(invalid.From)).
			WithExtension("to", string(invalid.To)), true
	}
	switch {
	case errors.Is(err, ordersports.ErrNotFound):
		return apperrors.ErrNotFound.WithDetail("order not found"), true
	case errors.Is(err, invports.ErrItemNotFound):
		return apperrors.ErrNotFound.WithDetail("inventory item not found"), true
	case errors.Is(err, invdomain.ErrLockTimeout), errors.Is(err, ordersports.ErrStaleOrder):
		return apperrors.ErrUnavailable.WithDetail("the order system is busy, please retry"), true
	case errors.Is(err, ordersapp.ErrInvalidInput), errors.Is(err, invapp.ErrInvalidInput):
		return apperrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apperrors.ProblemDetail{}, false
}
