package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/eaglebank/platform/shared/models"
	sharedredis "github.com/eaglebank/platform/shared/redis"
)

// ViewCache is the subset of the Redis read model the repository uses.
type ViewCache interface {
	Get(ctx context.Context, key string) (*models.CustomerView, bool)
	Set(ctx context.Context, key string, value *models.CustomerView, version int64)
	Invalidate(ctx context.Context, version int64, keys ...string)
}

func customerKey(id int64) string { return strconv.FormatInt(id, 10) }

// CustomerReadRepository serves customer views from Redis, falling back to
// PostgreSQL and warming the cache on every cold read.
type CustomerReadRepository struct {
	db     *sql.DB
	writes *CustomerWriteRepository
	cache  ViewCache
	now    func() time.Time
}

func NewCustomerReadRepository(db *sql.DB, cache ViewCache) *CustomerReadRepository {
	return &CustomerReadRepository{
		db:     db,
		writes: NewCustomerWriteRepository(db),
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *CustomerReadRepository) GetByID(ctx context.Context, id int64) (*models.CustomerView, error) {
	if view, ok := r.cache.Get(ctx, customerKey(id)); ok {
		return view, nil
	}
	c, err := r.writes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := c.View()
	r.CacheCustomerView(ctx, view)
	return view, nil
}

// Exists backs the ledger's existence check and always reads Postgres.
func (r *CustomerReadRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check customer: %w", err)
	}
	return exists, nil
}

func (r *CustomerReadRepository) List(ctx context.Context) ([]models.CustomerView, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE deleted_at IS NULL ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	views := []models.CustomerView{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		views = append(views, *c.View())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return views, nil
}

// CacheCustomerView stores or refreshes the Redis read model for a customer,
// versioned by updated_at.
func (r *CustomerReadRepository) CacheCustomerView(ctx context.Context, view *models.CustomerView) {
	r.cache.Set(ctx, customerKey(view.ID), view, sharedredis.VersionOf(view.UpdatedAt))
}

func (r *CustomerReadRepository) InvalidateCustomerView(ctx context.Context, id int64) {
	r.cache.Invalidate(ctx, sharedredis.VersionOf(r.now()), customerKey(id))
}
