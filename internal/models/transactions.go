package models

import (
	"time"
)

// TxStatus tracks a prepared transaction through its off-chain lifecycle.
type TxStatus string

const (
	TxPrepared  TxStatus = "prepared"
	TxSubmitted TxStatus = "submitted"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
	TxExpired   TxStatus = "expired"
)

// IsTerminal returns true once a record can no longer change state.
func (s TxStatus) IsTerminal() bool {
	return s == TxConfirmed || s == TxFailed || s == TxExpired
}

// PreparedTransaction is the ledger record for an unsigned transaction handed
// to a wallet. It pairs the speculative payload sent to the client with the
// reconciliation state tracked once the wallet submits the signed transaction.
type PreparedTransaction struct {
	ID                   string            `json:"id"`
	Kind                 string            `json:"kind"`
	Signer               string            `json:"signer"`
	Accounts             map[string]string `json:"accounts,omitempty"`
	Blockhash            string            `json:"blockhash"`
	LastValidBlockHeight uint64            `json:"lastValidBlockHeight"`
	Status               TxStatus          `json:"status"`
	Signature            string            `json:"signature,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// TxListFilters narrows ledger listings.
type TxListFilters struct {
	Signer string
	Status TxStatus
	Limit  int
	Offset int
}
