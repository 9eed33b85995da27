package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlabour/labour-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const txColumns = `id, kind, signer, accounts, blockhash, last_valid_block_height, status, signature, created_at, updated_at`

// CreateTransaction inserts a new ledger record
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *models.PreparedTransaction) error {
	accountsJSON, err := json.Marshal(tx.Accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	query := `
		INSERT INTO prepared_transactions (id, kind, signer, accounts, blockhash, last_valid_block_height, status, signature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		tx.ID,
		tx.Kind,
		tx.Signer,
		accountsJSON,
		tx.Blockhash,
		tx.LastValidBlockHeight,
		string(tx.Status),
		nullString(tx.Signature),
		tx.CreatedAt,
		tx.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}

	return nil
}

func scanTransaction(row pgx.Row) (*models.PreparedTransaction, error) {
	var tx models.PreparedTransaction
	var statusStr string
	var signature sql.NullString
	var accountsJSON []byte

	err := row.Scan(
		&tx.ID,
		&tx.Kind,
		&tx.Signer,
		&accountsJSON,
		&tx.Blockhash,
		&tx.LastValidBlockHeight,
		&statusStr,
		&signature,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Status = models.TxStatus(statusStr)
	tx.Signature = signature.String

	if accountsJSON != nil {
		if err := json.Unmarshal(accountsJSON, &tx.Accounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
		}
	}

	return &tx, nil
}

// GetTransaction retrieves a ledger record by ID
func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (*models.PreparedTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM prepared_transactions WHERE id = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return tx, nil
}

// GetTransactionBySignature retrieves a ledger record by its attached
// signature
func (r *PostgresRepository) GetTransactionBySignature(ctx context.Context, signature string) (*models.PreparedTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM prepared_transactions WHERE signature = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return tx, nil
}

// AttachSignature moves a prepared record to submitted and stores the wallet's
// signature. Only records still in 'prepared' are eligible, so a replayed
// callback cannot resurrect a terminal record.
func (r *PostgresRepository) AttachSignature(ctx context.Context, id, signature string) (*models.PreparedTransaction, error) {
	query := `
		UPDATE prepared_transactions
		SET signature = $2, status = 'submitted', updated_at = NOW()
		WHERE id = $1 AND status = 'prepared'
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id, signature))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to attach signature: %w", err)
	}
	return tx, nil
}

// UpdateStatus sets the status of a ledger record
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.TxStatus) error {
	query := `
		UPDATE prepared_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTransactions returns ledger records matching filters
func (r *PostgresRepository) ListTransactions(ctx context.Context, filters models.TxListFilters) ([]*models.PreparedTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM prepared_transactions WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.Signer != "" {
		query += fmt.Sprintf(" AND signer = $%d", argNum)
		args = append(args, filters.Signer)
		argNum++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction records: %w", err)
	}
	defer rows.Close()

	var txs []*models.PreparedTransaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction records: %w", err)
	}

	return txs, nil
}

// GetPendingTransactions returns submitted records awaiting chain
// confirmation, oldest first
func (r *PostgresRepository) GetPendingTransactions(ctx context.Context) ([]*models.PreparedTransaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM prepared_transactions
		WHERE status = 'submitted'
		ORDER BY updated_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.PreparedTransaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// ExpireStale marks prepared records older than the cutoff as expired. A
// wallet that never signed within the blockhash validity window will not come
// back for the same payload.
func (r *PostgresRepository) ExpireStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE prepared_transactions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'prepared' AND created_at < $1
	`

	result, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale transactions: %w", err)
	}

	return result.RowsAffected(), nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
