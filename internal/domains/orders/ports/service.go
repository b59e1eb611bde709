package ports

import (
	"context"

	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

// Service is the coordinator façade. Every channel (bot, web, panel) calls
// only this interface; nothing else may mutate order or inventory state.
type Service interface {
	CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, input types.StatusUpdateInput) (*domain.Order, error)
	ApplyPaymentStatus(ctx context.Context, input types.PaymentUpdateInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CustomerOrders(ctx context.Context, customerID int64) ([]*domain.Order, error)
}

// TxRunner scopes one logical operation to one transaction. The postgres
// implementation threads a gorm transaction through the context; the memory
// implementation simply invokes fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
