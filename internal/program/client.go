package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/openlabour/labour-engine/internal/models"
)

// ErrAccountNotFound is returned when a derived address has no account behind
// it on the current cluster.
var ErrAccountNotFound = errors.New("account not found")

// Client reads program accounts over JSON-RPC and decodes them into typed
// models. It never signs or submits anything.
type Client struct {
	rpc        *rpc.Client
	programID  solana.PublicKey
	commitment rpc.CommitmentType
}

// NewClient builds a read client against the given RPC endpoint.
func NewClient(endpoint string, programID solana.PublicKey, commitment rpc.CommitmentType) *Client {
	return &Client{
		rpc:        rpc.New(endpoint),
		programID:  programID,
		commitment: commitment,
	}
}

// ProgramID returns the program this client is bound to.
func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// Health pings the RPC node. Used by the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("rpc health check failed: %w", err)
	}
	if out != rpc.HealthOk {
		return fmt.Errorf("rpc node unhealthy: %s", out)
	}
	return nil
}

// LatestBlockhash fetches a recent blockhash and the last block height it is
// valid for.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("failed to fetch latest blockhash: %w", err)
	}
	return out.Value.Blockhash, out.Value.LastValidBlockHeight, nil
}

func (c *Client) accountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to fetch account %s: %w", address, err)
	}
	if out.Value == nil {
		return nil, ErrAccountNotFound
	}
	return out.Value.Data.GetBinary(), nil
}

// AccountExists reports whether an account is present at the given address.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, err := c.accountData(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchSystemState fetches and decodes the singleton system state account.
func (c *Client) FetchSystemState(ctx context.Context) (*models.KeyedSystemState, error) {
	address, err := SystemStateAddress(c.programID)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	st, err := DecodeSystemState(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedSystemState{PublicKey: address, SystemState: *st}, nil
}

// FetchUserByWallet derives the user PDA for a wallet and fetches it.
func (c *Client) FetchUserByWallet(ctx context.Context, wallet solana.PublicKey) (*models.KeyedUserAccount, error) {
	address, err := UserAddress(c.programID, wallet)
	if err != nil {
		return nil, err
	}
	return c.FetchUser(ctx, address)
}

// FetchUser fetches and decodes a user account at a known address.
func (c *Client) FetchUser(ctx context.Context, address solana.PublicKey) (*models.KeyedUserAccount, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	u, err := DecodeUserAccount(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedUserAccount{PublicKey: address, UserAccount: *u}, nil
}

// FetchProject fetches and decodes a project account.
func (c *Client) FetchProject(ctx context.Context, address solana.PublicKey) (*models.KeyedProject, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	p, err := DecodeProject(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedProject{PublicKey: address, Project: *p}, nil
}

// FetchApplication fetches and decodes an application account.
func (c *Client) FetchApplication(ctx context.Context, address solana.PublicKey) (*models.KeyedApplication, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	a, err := DecodeApplication(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedApplication{PublicKey: address, Application: *a}, nil
}

// FetchAssignment fetches and decodes an assignment account.
func (c *Client) FetchAssignment(ctx context.Context, address solana.PublicKey) (*models.KeyedAssignment, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	a, err := DecodeAssignment(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedAssignment{PublicKey: address, Assignment: *a}, nil
}

// FetchWorkVerification fetches and decodes a work verification account.
func (c *Client) FetchWorkVerification(ctx context.Context, address solana.PublicKey) (*models.KeyedWorkVerification, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	wv, err := DecodeWorkVerification(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedWorkVerification{PublicKey: address, WorkVerification: *wv}, nil
}

// FetchReview fetches and decodes a review account.
func (c *Client) FetchReview(ctx context.Context, address solana.PublicKey) (*models.KeyedReview, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	r, err := DecodeReview(data)
	if err != nil {
		return nil, err
	}
	return &models.KeyedReview{PublicKey: address, Review: *r}, nil
}

func (c *Client) programAccounts(ctx context.Context, accountName string, filters []rpc.RPCFilter) (rpc.GetProgramAccountsResult, error) {
	all := append([]rpc.RPCFilter{{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: 0,
			Bytes:  solana.Base58(accountDiscriminator(accountName)),
		},
	}}, filters...)
	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Filters:    all,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s accounts: %w", accountName, err)
	}
	return out, nil
}

func memcmpKey(offset uint64, key solana.PublicKey) rpc.RPCFilter {
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: offset,
			Bytes:  solana.Base58(key.Bytes()),
		},
	}
}

// ListProjects lists every project, optionally narrowed to one manager
// account.
func (c *Client) ListProjects(ctx context.Context, manager *solana.PublicKey) ([]models.KeyedProject, error) {
	var filters []rpc.RPCFilter
	if manager != nil {
		filters = append(filters, memcmpKey(OffsetProjectManager, *manager))
	}
	raw, err := c.programAccounts(ctx, accountProject, filters)
	if err != nil {
		return nil, err
	}
	projects := make([]models.KeyedProject, 0, len(raw))
	for _, acc := range raw {
		p, err := DecodeProject(acc.Account.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		projects = append(projects, models.KeyedProject{PublicKey: acc.Pubkey, Project: *p})
	}
	return projects, nil
}

// ListApplicationsByProject lists applications filed against a project.
func (c *Client) ListApplicationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedApplication, error) {
	return c.listApplications(ctx, memcmpKey(OffsetApplicationProject, project))
}

// ListApplicationsByLabour lists applications filed by a labour account.
func (c *Client) ListApplicationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedApplication, error) {
	return c.listApplications(ctx, memcmpKey(OffsetApplicationLabour, labourAccount))
}

func (c *Client) listApplications(ctx context.Context, filter rpc.RPCFilter) ([]models.KeyedApplication, error) {
	raw, err := c.programAccounts(ctx, accountApplication, []rpc.RPCFilter{filter})
	if err != nil {
		return nil, err
	}
	apps := make([]models.KeyedApplication, 0, len(raw))
	for _, acc := range raw {
		a, err := DecodeApplication(acc.Account.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		apps = append(apps, models.KeyedApplication{PublicKey: acc.Pubkey, Application: *a})
	}
	return apps, nil
}

// ListAssignmentsByLabour lists assignments held by a labour account.
func (c *Client) ListAssignmentsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedAssignment, error) {
	return c.listAssignments(ctx, memcmpKey(OffsetAssignmentLabour, labourAccount))
}

// ListAssignmentsByProject lists assignments attached to a project.
func (c *Client) ListAssignmentsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedAssignment, error) {
	return c.listAssignments(ctx, memcmpKey(OffsetAssignmentProject, project))
}

func (c *Client) listAssignments(ctx context.Context, filter rpc.RPCFilter) ([]models.KeyedAssignment, error) {
	raw, err := c.programAccounts(ctx, accountAssignment, []rpc.RPCFilter{filter})
	if err != nil {
		return nil, err
	}
	assignments := make([]models.KeyedAssignment, 0, len(raw))
	for _, acc := range raw {
		a, err := DecodeAssignment(acc.Account.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, models.KeyedAssignment{PublicKey: acc.Pubkey, Assignment: *a})
	}
	return assignments, nil
}

// ListVerificationsByLabour lists work verifications submitted by a labour
// account.
func (c *Client) ListVerificationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return c.listVerifications(ctx, memcmpKey(OffsetVerificationLabour, labourAccount))
}

// ListVerificationsByProject lists work verifications attached to a project.
func (c *Client) ListVerificationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return c.listVerifications(ctx, memcmpKey(OffsetVerificationProject, project))
}

func (c *Client) listVerifications(ctx context.Context, filter rpc.RPCFilter) ([]models.KeyedWorkVerification, error) {
	raw, err := c.programAccounts(ctx, accountWorkVerification, []rpc.RPCFilter{filter})
	if err != nil {
		return nil, err
	}
	verifications := make([]models.KeyedWorkVerification, 0, len(raw))
	for _, acc := range raw {
		wv, err := DecodeWorkVerification(acc.Account.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		verifications = append(verifications, models.KeyedWorkVerification{PublicKey: acc.Pubkey, WorkVerification: *wv})
	}
	return verifications, nil
}

// TokenAccountsByOwner lists the owner's token accounts for a mint, newest
// first as the node returns them.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]solana.PublicKey, error) {
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts for %s: %w", owner, err)
	}
	accounts := make([]solana.PublicKey, 0, len(out.Value))
	for _, acc := range out.Value {
		accounts = append(accounts, acc.Pubkey)
	}
	return accounts, nil
}

// TokenBalance fetches the balance of a token account.
func (c *Client) TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (*rpc.UiTokenAmount, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token balance for %s: %w", tokenAccount, err)
	}
	return out.Value, nil
}

// SignatureStatus looks up the confirmation status of a submitted signature.
// A nil result means the cluster does not know the signature yet.
func (c *Client) SignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signature status: %w", err)
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// BlockHeight returns the node's current block height, used to expire
// prepared transactions whose blockhash has lapsed.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch block height: %w", err)
	}
	return height, nil
}
