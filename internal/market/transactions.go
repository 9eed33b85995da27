package market

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/storage"
)

// Transaction returns one ledger record.
func (s *Service) Transaction(ctx context.Context, id string) (*models.PreparedTransaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// Transactions lists ledger records.
func (s *Service) Transactions(ctx context.Context, filters models.TxListFilters) ([]*models.PreparedTransaction, error) {
	return s.repo.ListTransactions(ctx, filters)
}

// ReportSignature records the signature a wallet produced for a prepared
// transaction and moves the record to submitted. Replays of the same callback
// are rejected by the status guard in the repository.
func (s *Service) ReportSignature(ctx context.Context, id, signature string) (*models.PreparedTransaction, error) {
	if _, err := solana.SignatureFromBase58(signature); err != nil {
		return nil, ErrInvalidSignature
	}

	record, err := s.repo.AttachSignature(ctx, id, signature)
	if err != nil {
		return nil, err
	}

	slog.Info("transaction submitted",
		"tx_id", record.ID,
		"kind", record.Kind,
		"signature", signature,
	)
	return record, nil
}

// TxChainStatus is the on-chain view of a submitted transaction, paired with
// the ledger record when the signature is one this service handed out.
type TxChainStatus struct {
	Signature          string                     `json:"signature"`
	Known              bool                       `json:"known"`
	Slot               uint64                     `json:"slot,omitempty"`
	Confirmations      *uint64                    `json:"confirmations,omitempty"`
	ConfirmationStatus string                     `json:"confirmationStatus,omitempty"`
	Failed             bool                       `json:"failed"`
	Transaction        *models.PreparedTransaction `json:"transaction,omitempty"`
}

// TransactionStatus asks the chain about a signature and attaches the ledger
// record when one exists. An unknown signature is not an error; the RPC node
// may simply not have seen it yet.
func (s *Service) TransactionStatus(ctx context.Context, signature string) (*TxChainStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	result := &TxChainStatus{Signature: signature}

	// A signature this service never issued has no ledger record; anything
	// else from the repository is a real failure.
	record, err := s.repo.GetTransactionBySignature(ctx, signature)
	switch {
	case err == nil:
		result.Transaction = record
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	status, err := s.chain.SignatureStatus(ctx, sig)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return result, nil
	}

	result.Known = true
	result.Slot = status.Slot
	result.Confirmations = status.Confirmations
	result.ConfirmationStatus = string(status.ConfirmationStatus)
	result.Failed = status.Err != nil
	return result, nil
}
