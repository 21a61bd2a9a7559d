package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/database"
	"github.com/eaglebank/platform/shared/models"
)

const accountNumberConstraint = "uk_account_number"

var (
	ErrAccountNotFound = apperr.NotFound("ACCOUNT_NOT_FOUND", "Account not found")
	// ErrDuplicateAccountNumber is returned by Create when the generated
	// number collides with an existing or retired one.
	ErrDuplicateAccountNumber = errors.New("account number already exists")
)

// Mutation tells Mutate what to persist after the callback ran.
type Mutation int

const (
	// MutationNone commits nothing.
	MutationNone Mutation = iota
	// MutationUpdate writes balance, status and updated_at.
	MutationUpdate
	// MutationDelete soft deletes the row.
	MutationDelete
)

// MutateFunc inspects and changes a locked account. Returning an error
// rolls the transaction back with nothing written.
type MutateFunc func(a *models.Account) (Mutation, error)

const accountColumns = `id, account_number, customer_id, account_type, status, balance, created_at, updated_at`

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth).
type AccountWriteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// stamp returns the updated_at for a write over a row last written at prev.
// It is strictly later than prev so read model versions never repeat.
func (r *AccountWriteRepository) stamp(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// Create inserts the account and sets its ID and timestamps.
func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	now := r.now()
	query := `
		INSERT INTO accounts (account_number, customer_id, account_type, status, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		account.AccountNumber, account.CustomerID, string(account.Type), string(account.Status),
		account.Balance, now,
	).Scan(&account.ID)
	if database.IsUniqueViolation(err, accountNumberConstraint) {
		return ErrDuplicateAccountNumber
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetByRef reads a live account from Postgres.
func (r *AccountWriteRepository) GetByRef(ctx context.Context, ref cqrs.AccountRef) (*models.Account, error) {
	where, arg, err := refClause(ref)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + ` AND deleted_at IS NULL`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Mutate locks the live account addressed by ref, hands it to fn and
// persists what fn asks for, all in one transaction. Concurrent mutations of
// the same account serialize on the row lock.
func (r *AccountWriteRepository) Mutate(ctx context.Context, ref cqrs.AccountRef, fn MutateFunc) (*models.Account, error) {
	where, arg, err := refClause(ref)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + ` AND deleted_at IS NULL FOR UPDATE`
	account, err := scanAccount(tx.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	mutation, err := fn(account)
	if err != nil {
		return nil, err
	}

	now := r.stamp(account.UpdatedAt)
	switch mutation {
	case MutationNone:
		return account, nil
	case MutationUpdate:
		account.Balance = models.RoundBalance(account.Balance)
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance = $2, status = $3, updated_at = $4 WHERE id = $1`,
			account.ID, account.Balance, string(account.Status), now)
	case MutationDelete:
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET deleted_at = $2, updated_at = $2 WHERE id = $1`,
			account.ID, now)
	default:
		return nil, fmt.Errorf("unknown mutation %d", mutation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account: %w", err)
	}
	account.UpdatedAt = now
	return account, nil
}

// ExistsActiveFor reports whether the customer holds a live ACTIVE account.
func (r *AccountWriteRepository) ExistsActiveFor(ctx context.Context, customerID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE customer_id = $1 AND status = $2 AND deleted_at IS NULL
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, customerID, string(models.AccountStatusActive)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active accounts: %w", err)
	}
	return exists, nil
}

func refClause(ref cqrs.AccountRef) (string, any, error) {
	switch {
	case ref.ID > 0:
		return "id = $1", ref.ID, nil
	case ref.Number != "":
		return "account_number = $1", ref.Number, nil
	default:
		return "", nil, apperr.Validation("INVALID_ACCOUNT_REF", "Account id or number is required")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(
		&a.ID, &a.AccountNumber, &a.CustomerID, &a.Type, &a.Status,
		&a.Balance, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
