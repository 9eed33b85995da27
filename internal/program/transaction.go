package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// NewUnsignedTransaction assembles a transaction ready for client-side
// signing: instructions, a recent blockhash, and the signer as fee payer. No
// signatures are attached; the caller's wallet signs and submits.
func NewUnsignedTransaction(instructions []solana.Instruction, feePayer solana.PublicKey, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(feePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	return tx, nil
}

// EncodeTransaction serializes a transaction to the base58 wire form the API
// hands back to wallets.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base58.Encode(raw), nil
}
