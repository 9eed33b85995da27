package market

import (
	"context"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"github.com/openlabour/labour-engine/internal/program"
)

// MintTokenParams carries a faucet request for the marketplace token.
type MintTokenParams struct {
	Wallet solana.PublicKey
	Amount float64
}

// MintTokenResult pairs the unsigned transaction with the destination token
// account.
type MintTokenResult struct {
	PreparedTx
	TokenAccount        string `json:"tokenAccount"`
	TokenAccountCreated bool   `json:"tokenAccountCreated"`
}

// MintToken builds a mint_token transaction to the wallet's associated token
// account, creating the account first when needed.
func (s *Service) MintToken(ctx context.Context, p MintTokenParams) (*MintTokenResult, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	programID := s.chain.ProgramID()

	state, err := s.chain.FetchSystemState(ctx)
	if err != nil {
		return nil, err
	}
	mintAuthority, err := program.MintAuthorityAddress(programID)
	if err != nil {
		return nil, err
	}

	ata, _, err := solana.FindAssociatedTokenAddress(p.Wallet, state.Mint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	created := false
	exists, err := s.chain.AccountExists(ctx, ata)
	if err != nil {
		return nil, err
	}
	if !exists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			p.Wallet,
			p.Wallet,
			state.Mint,
		).Build())
		created = true
	}

	amount := uint64(math.Floor(p.Amount * math.Pow10(s.decimals)))

	ix, err := program.MintToken(programID, program.MintTokenAccounts{
		SystemState:   state.PublicKey,
		Mint:          state.Mint,
		MintAuthority: mintAuthority,
		To:            ata,
	}, amount)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, ix)

	prepared, err := s.prepare(ctx, "mint-token", p.Wallet, instructions, map[string]string{
		"tokenAccount": ata.String(),
	})
	if err != nil {
		return nil, err
	}

	return &MintTokenResult{
		PreparedTx:          *prepared,
		TokenAccount:        ata.String(),
		TokenAccountCreated: created,
	}, nil
}

// BalanceResult is a wallet's marketplace-token balance. A wallet without a
// token account reports zero rather than an error.
type BalanceResult struct {
	Wallet        string  `json:"userPubkey"`
	Mint          string  `json:"mint"`
	Balance       float64 `json:"balance"`
	RawBalance    string  `json:"rawBalance"`
	Decimals      int     `json:"decimals"`
	AccountExists bool    `json:"accountExists"`
}

// Balance fetches a wallet's balance of the marketplace mint.
func (s *Service) Balance(ctx context.Context, wallet solana.PublicKey) (*BalanceResult, error) {
	state, err := s.chain.FetchSystemState(ctx)
	if err != nil {
		return nil, err
	}

	ata, _, err := solana.FindAssociatedTokenAddress(wallet, state.Mint)
	if err != nil {
		return nil, err
	}

	result := &BalanceResult{
		Wallet:     wallet.String(),
		Mint:       state.Mint.String(),
		RawBalance: "0",
		Decimals:   s.decimals,
	}

	// A wallet that has never held the token has no account to query; report
	// an empty balance instead of failing.
	amount, err := s.chain.TokenBalance(ctx, ata)
	if err != nil {
		return result, nil
	}

	raw, parseErr := strconv.ParseUint(amount.Amount, 10, 64)
	if parseErr != nil {
		return nil, parseErr
	}

	result.AccountExists = true
	result.RawBalance = amount.Amount
	result.Balance = float64(raw) / math.Pow10(s.decimals)
	return result, nil
}
