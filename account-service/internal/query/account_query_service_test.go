package query

import (
	"context"
	"testing"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	getFn    func(cqrs.AccountRef) (*models.AccountView, error)
	listFn   func(int64) ([]models.AccountView, error)
	activeFn func(int64) (bool, error)
}

func (m *mockReader) GetByRef(_ context.Context, ref cqrs.AccountRef) (*models.AccountView, error) {
	return m.getFn(ref)
}

func (m *mockReader) List(_ context.Context, customerID int64) ([]models.AccountView, error) {
	return m.listFn(customerID)
}

func (m *mockReader) ExistsActiveFor(_ context.Context, customerID int64) (bool, error) {
	return m.activeFn(customerID)
}

func TestGetAccount(t *testing.T) {
	svc := NewAccountQueryService(&mockReader{getFn: func(ref cqrs.AccountRef) (*models.AccountView, error) {
		return &models.AccountView{ID: ref.ID, AccountNumber: "1234567890120310"}, nil
	}})

	v, err := svc.GetAccount(context.Background(), cqrs.GetAccountQuery{Ref: cqrs.ByID(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.ID)

	_, err = svc.GetAccount(context.Background(), cqrs.GetAccountQuery{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListAccountsPassesCustomerFilter(t *testing.T) {
	var got int64 = -1
	svc := NewAccountQueryService(&mockReader{listFn: func(id int64) ([]models.AccountView, error) {
		got = id
		return []models.AccountView{}, nil
	}})

	_, err := svc.ListAccounts(context.Background(), cqrs.ListAccountsQuery{CustomerID: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)

	_, err = svc.ListAccounts(context.Background(), cqrs.ListAccountsQuery{CustomerID: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestHasActiveAccounts(t *testing.T) {
	svc := NewAccountQueryService(&mockReader{activeFn: func(id int64) (bool, error) {
		return id == 1, nil
	}})

	active, err := svc.HasActiveAccounts(context.Background(), cqrs.ActiveAccountsQuery{CustomerID: 1})
	require.NoError(t, err)
	assert.True(t, active)

	active, err = svc.HasActiveAccounts(context.Background(), cqrs.ActiveAccountsQuery{CustomerID: 2})
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.HasActiveAccounts(context.Background(), cqrs.ActiveAccountsQuery{CustomerID: 0})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
