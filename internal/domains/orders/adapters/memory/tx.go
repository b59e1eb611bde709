package memory

import (
	"context"

	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

var _ ports.TxRunner = TxRunner{}

// TxRunner satisfies ports.TxRunner for memory-backed wiring. The memory
// adapters serialize internally and the coordinator compensates an applied
// reservation explicitly, so there is no transaction to open.
type TxRunner struct{}

func (TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
