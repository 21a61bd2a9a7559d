package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/models"
	sharedredis "github.com/eaglebank/platform/shared/redis"
)

// ViewCache is the subset of the Redis read model the repository uses.
type ViewCache interface {
	Get(ctx context.Context, key string) (*models.AccountView, bool)
	Set(ctx context.Context, key string, value *models.AccountView, version int64)
	Invalidate(ctx context.Context, version int64, keys ...string)
}

func idKey(id int64) string { return "id:" + strconv.FormatInt(id, 10) }
func numberKey(number string) string { return "number:" + number }

func refKey(ref cqrs.AccountRef) string {
	if ref.ID > 0 {
		return idKey(ref.ID)
	}
	return numberKey(ref.Number)
}

// AccountReadRepository handles all read operations for accounts.
// It treats Redis as the primary read store (the CQRS read model) and falls
// back to PostgreSQL transparently, warming the cache on every cold read.
type AccountReadRepository struct {
	db     *sql.DB
	writes *AccountWriteRepository
	cache  ViewCache
	now    func() time.Time
}

func NewAccountReadRepository(db *sql.DB, cache ViewCache) *AccountReadRepository {
	return &AccountReadRepository{
		db:     db,
		writes: NewAccountWriteRepository(db),
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetByRef returns an AccountView, trying Redis first then PostgreSQL.
func (r *AccountReadRepository) GetByRef(ctx context.Context, ref cqrs.AccountRef) (*models.AccountView, error) {
	if view, ok := r.cache.Get(ctx, refKey(ref)); ok {
		return view, nil
	}

	account, err := r.writes.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	view := account.View()
	r.CacheAccountView(ctx, view)
	return view, nil
}

// List returns live accounts from PostgreSQL, newest first. customerID 0
// lists every account.
func (r *AccountReadRepository) List(ctx context.Context, customerID int64) ([]models.AccountView, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NULL`
	var args []any
	if customerID > 0 {
		query += ` AND customer_id = $1`
		args = append(args, customerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	views := []models.AccountView{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		views = append(views, *account.View())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return views, nil
}

// ExistsActiveFor always reads Postgres; the guard must not see a stale view.
func (r *AccountReadRepository) ExistsActiveFor(ctx context.Context, customerID int64) (bool, error) {
	return r.writes.ExistsActiveFor(ctx, customerID)
}

// CacheAccountView stores or refreshes the Redis read model for an account
// under both its ID and its number. Older views than the cached one are dropped.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	version := sharedredis.VersionOf(view.UpdatedAt)
	r.cache.Set(ctx, idKey(view.ID), view, version)
	r.cache.Set(ctx, numberKey(view.AccountNumber), view, version)
}

// InvalidateAccountView tombstones the Redis read model entries for a
// deleted account.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, id int64, number string) {
	r.cache.Invalidate(ctx, sharedredis.VersionOf(r.now()), idKey(id), numberKey(number))
}
