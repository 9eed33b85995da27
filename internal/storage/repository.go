package storage

import (
	"context"
	"errors"
	"time"

	"github.com/openlabour/labour-engine/internal/models"
)

// ErrNotFound is returned when a ledger record does not exist.
var ErrNotFound = errors.New("transaction record not found")

// Repository defines the interface for the prepared-transaction ledger
type Repository interface {
	CreateTransaction(ctx context.Context, tx *models.PreparedTransaction) error
	GetTransaction(ctx context.Context, id string) (*models.PreparedTransaction, error)
	GetTransactionBySignature(ctx context.Context, signature string) (*models.PreparedTransaction, error)
	AttachSignature(ctx context.Context, id, signature string) (*models.PreparedTransaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TxStatus) error
	ListTransactions(ctx context.Context, filters models.TxListFilters) ([]*models.PreparedTransaction, error)

	// Reconciliation
	GetPendingTransactions(ctx context.Context) ([]*models.PreparedTransaction, error)
	ExpireStale(ctx context.Context, olderThan time.Time) (int64, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
