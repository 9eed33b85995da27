package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"

	"github.com/openlabour/labour-engine/internal/cache"
	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/program"
	"github.com/openlabour/labour-engine/internal/storage"
)

// ChainReader is the read surface of the program client the service depends
// on. Satisfied by *program.Client; tests substitute a fake.
type ChainReader interface {
	ProgramID() solana.PublicKey
	Health(ctx context.Context) error
	LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	BlockHeight(ctx context.Context) (uint64, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)

	FetchSystemState(ctx context.Context) (*models.KeyedSystemState, error)
	FetchUserByWallet(ctx context.Context, wallet solana.PublicKey) (*models.KeyedUserAccount, error)
	FetchUser(ctx context.Context, address solana.PublicKey) (*models.KeyedUserAccount, error)
	FetchProject(ctx context.Context, address solana.PublicKey) (*models.KeyedProject, error)
	FetchApplication(ctx context.Context, address solana.PublicKey) (*models.KeyedApplication, error)
	FetchAssignment(ctx context.Context, address solana.PublicKey) (*models.KeyedAssignment, error)
	FetchWorkVerification(ctx context.Context, address solana.PublicKey) (*models.KeyedWorkVerification, error)

	ListProjects(ctx context.Context, manager *solana.PublicKey) ([]models.KeyedProject, error)
	ListApplicationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedApplication, error)
	ListApplicationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedApplication, error)
	ListAssignmentsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedAssignment, error)
	ListAssignmentsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedAssignment, error)
	ListVerificationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedWorkVerification, error)
	ListVerificationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedWorkVerification, error)

	TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]solana.PublicKey, error)
	TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (*rpc.UiTokenAmount, error)
	SignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error)
}

// Pinner is the content-pinning surface the service depends on.
type Pinner interface {
	UploadFile(ctx context.Context, filename string, content io.Reader) (string, error)
	UploadJSON(ctx context.Context, name string, content interface{}) (string, error)
}

// Upload is one file received from a multipart request.
type Upload struct {
	Name    string
	Content io.Reader
}

// Service orchestrates marketplace operations: precondition checks against
// chain snapshots, metadata pinning, instruction building, and the ledger
// record for each unsigned transaction handed out.
type Service struct {
	chain    ChainReader
	pins     Pinner
	repo     storage.Repository
	cache    *cache.Cache
	decimals int

	now   func() time.Time
	newID func() string
}

// NewService wires the service dependencies. Cache may be nil.
func NewService(chain ChainReader, pins Pinner, repo storage.Repository, c *cache.Cache, tokenDecimals int) *Service {
	return &Service{
		chain:    chain,
		pins:     pins,
		repo:     repo,
		cache:    c,
		decimals: tokenDecimals,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// PreparedTx is the transaction envelope every write operation returns: the
// base58 payload for the wallet plus the ledger handle used to report the
// signature back.
type PreparedTx struct {
	TxID                  string `json:"txId"`
	SerializedTransaction string `json:"serializedTransaction"`
	Blockhash             string `json:"blockhash"`
	LastValidBlockHeight  uint64 `json:"lastValidBlockHeight"`
}

// prepare assembles the unsigned transaction, encodes it, and records it in
// the ledger. Accounts is the set of derived addresses the operation touched,
// keyed by role, so the reconciler can invalidate the right cache entries.
func (s *Service) prepare(ctx context.Context, kind string, signer solana.PublicKey, instructions []solana.Instruction, accounts map[string]string) (*PreparedTx, error) {
	blockhash, lastValid, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := program.NewUnsignedTransaction(instructions, signer, blockhash)
	if err != nil {
		return nil, err
	}
	encoded, err := program.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}

	record := &models.PreparedTransaction{
		ID:                   s.newID(),
		Kind:                 kind,
		Signer:               signer.String(),
		Accounts:             accounts,
		Blockhash:            blockhash.String(),
		LastValidBlockHeight: lastValid,
		Status:               models.TxPrepared,
		CreatedAt:            s.now().UTC(),
		UpdatedAt:            s.now().UTC(),
	}
	if err := s.repo.CreateTransaction(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record prepared transaction: %w", err)
	}

	slog.Info("transaction prepared",
		"tx_id", record.ID,
		"kind", kind,
		"signer", record.Signer,
	)

	return &PreparedTx{
		TxID:                  record.ID,
		SerializedTransaction: encoded,
		Blockhash:             record.Blockhash,
		LastValidBlockHeight:  lastValid,
	}, nil
}

// uploadAll pins a set of files and returns their gateway URLs in order.
func (s *Service) uploadAll(ctx context.Context, files []Upload) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.pins.UploadFile(ctx, f.Name, f.Content)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// uploadBundle pins a set of files as one referenceable unit: a single file
// is its own bundle, several get a JSON manifest pinned on top.
func (s *Service) uploadBundle(ctx context.Context, name string, files []Upload) (string, error) {
	urls, err := s.uploadAll(ctx, files)
	if err != nil {
		return "", err
	}
	switch len(urls) {
	case 0:
		return "", nil
	case 1:
		return urls[0], nil
	}
	return s.pins.UploadJSON(ctx, name, map[string]interface{}{"files": urls})
}
