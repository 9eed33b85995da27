package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/openlabour/labour-engine/internal/cache"
	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/storage"
)

// ChainStatus is the slice of the chain client the reconciler needs.
type ChainStatus interface {
	SignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

// Reconciler moves submitted ledger records to their terminal state by polling
// the chain, and expires prepared records nobody ever signed.
type Reconciler struct {
	chain    ChainStatus
	repo     storage.Repository
	cache    *cache.Cache
	interval time.Duration
	expiry   time.Duration
}

// NewReconciler creates a new reconciliation worker
func NewReconciler(chain ChainStatus, repo storage.Repository, c *cache.Cache, interval, expiry time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if expiry <= 0 {
		expiry = 2 * time.Minute
	}

	return &Reconciler{
		chain:    chain,
		repo:     repo,
		cache:    c,
		interval: interval,
		expiry:   expiry,
	}
}

// Start begins the reconciliation worker in a goroutine
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// run is the main loop for the reconciliation worker
func (r *Reconciler) run(ctx context.Context) {
	slog.Info("reconcile worker started", "interval", r.interval, "expiry", r.expiry)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile runs one pass over the pending ledger records.
func (r *Reconciler) reconcile(ctx context.Context) {
	slog.Debug("running reconcile cycle")

	expired, err := r.repo.ExpireStale(ctx, time.Now().UTC().Add(-r.expiry))
	if err != nil {
		slog.Error("failed to expire stale transactions", "error", err)
	} else if expired > 0 {
		slog.Info("expired unsigned transactions", "count", expired)
	}

	pending, err := r.repo.GetPendingTransactions(ctx)
	if err != nil {
		slog.Error("failed to get pending transactions", "error", err)
		return
	}
	if len(pending) == 0 {
		slog.Debug("no pending transactions found")
		return
	}

	blockHeight, err := r.chain.BlockHeight(ctx)
	if err != nil {
		slog.Error("failed to get block height", "error", err)
		return
	}

	for _, tx := range pending {
		r.reconcileOne(ctx, tx, blockHeight)
	}
}

// reconcileOne resolves one submitted record against the chain.
func (r *Reconciler) reconcileOne(ctx context.Context, tx *models.PreparedTransaction, blockHeight uint64) {
	sig, err := solana.SignatureFromBase58(tx.Signature)
	if err != nil {
		slog.Error("ledger record carries a malformed signature",
			"tx_id", tx.ID,
			"signature", tx.Signature,
		)
		r.setStatus(ctx, tx, models.TxFailed)
		return
	}

	status, err := r.chain.SignatureStatus(ctx, sig)
	if err != nil {
		slog.Error("failed to get signature status", "error", err, "tx_id", tx.ID)
		return
	}

	if status == nil {
		// Unseen signature. Once the blockhash can no longer land, the
		// transaction is dead.
		if blockHeight > tx.LastValidBlockHeight {
			slog.Info("transaction expired past its blockhash window",
				"tx_id", tx.ID,
				"last_valid_block_height", tx.LastValidBlockHeight,
				"block_height", blockHeight,
			)
			r.setStatus(ctx, tx, models.TxExpired)
		}
		return
	}

	if status.Err != nil {
		slog.Info("transaction failed on chain", "tx_id", tx.ID, "chain_error", status.Err)
		r.setStatus(ctx, tx, models.TxFailed)
		return
	}

	if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
		slog.Info("transaction confirmed",
			"tx_id", tx.ID,
			"kind", tx.Kind,
			"slot", status.Slot,
		)
		r.setStatus(ctx, tx, models.TxConfirmed)
	}
}

// setStatus writes the terminal status and drops the cache entries the
// transaction touched, so the next read reflects the new chain state.
func (r *Reconciler) setStatus(ctx context.Context, tx *models.PreparedTransaction, status models.TxStatus) {
	if err := r.repo.UpdateStatus(ctx, tx.ID, status); err != nil {
		slog.Error("failed to update transaction status",
			"error", err,
			"tx_id", tx.ID,
			"status", status,
		)
		return
	}

	if status != models.TxConfirmed {
		return
	}

	patterns := []string{"projects:*"}
	if project, ok := tx.Accounts["project"]; ok {
		patterns = append(patterns, "applications:project:"+project)
	}
	r.cache.Invalidate(ctx, patterns...)
}
