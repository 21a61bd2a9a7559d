//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/eaglebank/platform/account-service/migrations"
	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/database/dbtest"
	"github.com/eaglebank/platform/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverdraft = apperr.BusinessRule("OVERDRAFT_LIMIT_EXCEEDED", "Overdraft limit exceeded (-500)")

func TestAccountWriteRepository_Integration(t *testing.T) {
	db := dbtest.NewPostgres(t, migrations.FS)
	repo := NewAccountWriteRepository(db)
	ctx := context.Background()

	checking := &models.Account{
		AccountNumber: "1000000000000001", CustomerID: 7,
		Type: models.AccountTypeChecking, Status: models.AccountStatusActive,
		Balance: decimal.RequireFromString("100.00"),
	}
	require.NoError(t, repo.Create(ctx, checking))

	t.Run("account number is unique", func(t *testing.T) {
		dup := *checking
		err := repo.Create(ctx, &dup)
		assert.ErrorIs(t, err, ErrDuplicateAccountNumber)
	})

	t.Run("concurrent withdrawals never cross the floor", func(t *testing.T) {
		withdraw := func(a *models.Account) (Mutation, error) {
			next := a.Balance.Sub(decimal.NewFromInt(100))
			if next.LessThan(decimal.NewFromInt(-500)) {
				return MutationNone, errOverdraft
			}
			a.Balance = next
			return MutationUpdate, nil
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, fail int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Mutate(ctx, cqrs.ByID(checking.ID), withdraw)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					assert.ErrorIs(t, err, errOverdraft)
					fail++
					return
				}
				ok++
			}()
		}
		wg.Wait()

		assert.Equal(t, 6, ok)
		assert.Equal(t, 4, fail)
		got, err := repo.GetByRef(ctx, cqrs.ByID(checking.ID))
		require.NoError(t, err)
		assert.Equal(t, "-500.00", got.Balance.StringFixed(2))
	})

	t.Run("soft delete hides the account", func(t *testing.T) {
		_, err := repo.Mutate(ctx, cqrs.ByNumber(checking.AccountNumber), func(*models.Account) (Mutation, error) {
			return MutationDelete, nil
		})
		require.NoError(t, err)

		_, err = repo.GetByRef(ctx, cqrs.ByID(checking.ID))
		assert.ErrorIs(t, err, ErrAccountNotFound)

		active, err := repo.ExistsActiveFor(ctx, 7)
		require.NoError(t, err)
		assert.False(t, active)
	})
}
