package postgres

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs one database transaction per logical operation and threads
// the handle through the context so every adapter touched by the operation
// commits or rolls back together.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager wires a transaction manager over the shared connection.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx executes fn inside a transaction. Nested calls join the transaction
// already carried by the context instead of opening a second one.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// TxFromContext returns the transaction carried by ctx, or nil.
func TxFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// HandleFromContext resolves the handle an adapter should use: the ambient
// transaction when one is open, otherwise the adapter's own connection.
func HandleFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}
