package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/database"
	"github.com/eaglebank/platform/shared/models"
)

const nationalIDConstraint = "uk_customer_national_id"

var (
	ErrCustomerNotFound    = apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found")
	ErrDuplicateNationalID = apperr.BusinessRule("DUPLICATE_NATIONAL_ID", "A customer with this national id already exists")
)

const customerColumns = `id, first_name, last_name, national_id, email, created_at, updated_at`

// CustomerWriteRepository handles all state-mutating operations for customers.
// It operates exclusively against the PostgreSQL write store (source of truth).
type CustomerWriteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCustomerWriteRepository(db *sql.DB) *CustomerWriteRepository {
	return &CustomerWriteRepository{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// Create inserts the customer and sets its ID and timestamps. The partial
// unique index on national_id is the authoritative duplicate check.
func (r *CustomerWriteRepository) Create(ctx context.Context, c *models.Customer) error {
	now := r.now()
	query := `
		INSERT INTO customers (first_name, last_name, national_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, c.FirstName, c.LastName, c.NationalID, c.Email, now).Scan(&c.ID)
	if database.IsUniqueViolation(err, nationalIDConstraint) {
		return ErrDuplicateNationalID
	}
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *CustomerWriteRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND deleted_at IS NULL`
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// ExistsByNationalID checks live customers only.
func (r *CustomerWriteRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM customers WHERE national_id = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, nationalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check national id: %w", err)
	}
	return exists, nil
}

// Update writes names and email. National id is never touched.
func (r *CustomerWriteRepository) Update(ctx context.Context, c *models.Customer) error {
	now := r.now()
	query := `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, c.ID, c.FirstName, c.LastName, c.Email, now)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (r *CustomerWriteRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE customers SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, r.now())
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.NationalID, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
