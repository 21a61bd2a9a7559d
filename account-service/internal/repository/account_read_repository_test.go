package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	entries  map[string]*models.AccountView
	versions map[string]int64
	deleted  []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]*models.AccountView{}, versions: map[string]int64{}}
}

func (m *mapCache) Get(_ context.Context, key string) (*models.AccountView, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key string, v *models.AccountView, version int64) {
	if version <= m.versions[key] {
		return
	}
	m.entries[key] = v
	m.versions[key] = version
}

func (m *mapCache) Invalidate(_ context.Context, version int64, keys ...string) {
	for _, k := range keys {
		if version <= m.versions[k] {
			continue
		}
		delete(m.entries, k)
		m.versions[k] = version
		m.deleted = append(m.deleted, k)
	}
}

func newMockReadRepository(t *testing.T) (*AccountReadRepository, sqlmock.Sqlmock, *mapCache) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cache := newMapCache()
	return NewAccountReadRepository(db, cache), mock, cache
}

func TestAccountReadRepository_GetByRef(t *testing.T) {
	t.Run("cache hit skips postgres", func(t *testing.T) {
		repo, mock, cache := newMockReadRepository(t)
		cache.entries["number:1234567890120310"] = &models.AccountView{ID: 3, AccountNumber: "1234567890120310"}

		v, err := repo.GetByRef(context.Background(), cqrs.ByNumber("1234567890120310"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), v.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss warms both keys", func(t *testing.T) {
		repo, mock, cache := newMockReadRepository(t)
		mock.ExpectQuery(`FROM accounts WHERE id = \$1 AND deleted_at IS NULL`).
			WithArgs(int64(3)).
			WillReturnRows(accountRows().AddRow(int64(3), "1234567890120310", int64(7), "SAVINGS", "ACTIVE", "12.5", fixedNow, fixedNow))

		v, err := repo.GetByRef(context.Background(), cqrs.ByID(3))
		require.NoError(t, err)
		assert.Equal(t, "12.50", v.Balance)
		assert.Contains(t, cache.entries, "id:3")
		assert.Contains(t, cache.entries, "number:1234567890120310")
	})
}

func TestAccountReadRepository_List(t *testing.T) {
	t.Run("filters by customer", func(t *testing.T) {
		repo, mock, _ := newMockReadRepository(t)
		mock.ExpectQuery(`WHERE deleted_at IS NULL AND customer_id = \$1 ORDER BY`).
			WithArgs(int64(7)).
			WillReturnRows(accountRows().
				AddRow(int64(4), "2222222222220000", int64(7), "CHECKING", "ACTIVE", "0", fixedNow, fixedNow).
				AddRow(int64(3), "1111111111110000", int64(7), "SAVINGS", "INACTIVE", "5", fixedNow, fixedNow))

		views, err := repo.List(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "0.00", views[0].Balance)
		assert.Equal(t, models.AccountStatusInactive, views[1].Status)
	})

	t.Run("all accounts, empty result is not nil", func(t *testing.T) {
		repo, mock, _ := newMockReadRepository(t)
		mock.ExpectQuery(`WHERE deleted_at IS NULL ORDER BY`).
			WillReturnRows(accountRows())

		views, err := repo.List(context.Background(), 0)
		require.NoError(t, err)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})
}

func TestAccountReadRepository_CacheVersions(t *testing.T) {
	t.Run("cold read does not replace a newer view", func(t *testing.T) {
		repo, mock, cache := newMockReadRepository(t)
		repo.CacheAccountView(context.Background(), &models.AccountView{
			ID: 3, AccountNumber: "1234567890120310", Balance: "120.00", UpdatedAt: fixedNow.Add(time.Second),
		})
		delete(cache.entries, "number:1234567890120310")
		delete(cache.versions, "number:1234567890120310")

		mock.ExpectQuery(`FROM accounts WHERE account_number = \$1 AND deleted_at IS NULL`).
			WithArgs("1234567890120310").
			WillReturnRows(accountRows().AddRow(int64(3), "1234567890120310", int64(7), "SAVINGS", "ACTIVE", "110.00", fixedNow, fixedNow))

		v, err := repo.GetByRef(context.Background(), cqrs.ByNumber("1234567890120310"))
		require.NoError(t, err)
		assert.Equal(t, "110.00", v.Balance)
		assert.Equal(t, "120.00", cache.entries["id:3"].Balance)
		assert.Equal(t, "110.00", cache.entries["number:1234567890120310"].Balance)
	})

	t.Run("invalidate tombstones both keys", func(t *testing.T) {
		repo, _, cache := newMockReadRepository(t)
		repo.now = func() time.Time { return fixedNow.Add(time.Minute) }
		stale := &models.AccountView{ID: 3, AccountNumber: "1234567890120310", UpdatedAt: fixedNow}

		repo.CacheAccountView(context.Background(), stale)
		repo.InvalidateAccountView(context.Background(), 3, "1234567890120310")
		repo.CacheAccountView(context.Background(), stale)

		assert.Empty(t, cache.entries)
		assert.ElementsMatch(t, []string{"id:3", "number:1234567890120310"}, cache.deleted)
	})
}
