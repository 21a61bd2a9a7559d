//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/eaglebank/platform/customer-service/migrations"
	"github.com/eaglebank/platform/shared/database/dbtest"
	"github.com/eaglebank/platform/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerWriteRepository_Integration(t *testing.T) {
	db := dbtest.NewPostgres(t, migrations.FS)
	repo := NewCustomerWriteRepository(db)
	ctx := context.Background()

	newCustomer := func() *models.Customer {
		return &models.Customer{FirstName: "Ada", LastName: "Lovelace", NationalID: "12345678Z", Email: "ada@example.com"}
	}

	first := newCustomer()
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newCustomer())
	assert.ErrorIs(t, err, ErrDuplicateNationalID)

	// The national id is free again once its holder is soft-deleted.
	require.NoError(t, repo.Delete(ctx, first.ID))
	second := newCustomer()
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	exists, err := NewCustomerReadRepository(db, newMapCache()).Exists(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
