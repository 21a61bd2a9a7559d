package query

import (
	"context"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/models"
)

// AccountReader is the read side of the account store.
type AccountReader interface {
	GetByRef(ctx context.Context, ref cqrs.AccountRef) (*models.AccountView, error)
	List(ctx context.Context, customerID int64) ([]models.AccountView, error)
	ExistsActiveFor(ctx context.Context, customerID int64) (bool, error)
}

type AccountQueryService struct {
	readRepo AccountReader
}

func NewAccountQueryService(readRepo AccountReader) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	if q.Ref.IsZero() {
		return nil, apperr.Validation("INVALID_ACCOUNT_REF", "Account id or number is required")
	}
	return s.readRepo.GetByRef(ctx, q.Ref)
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	if q.CustomerID < 0 {
		return nil, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number")
	}
	return s.readRepo.List(ctx, q.CustomerID)
}

// HasActiveAccounts backs the registry's delete guard.
func (s *AccountQueryService) HasActiveAccounts(ctx context.Context, q cqrs.ActiveAccountsQuery) (bool, error) {
	if q.CustomerID <= 0 {
		return false, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number")
	}
	return s.readRepo.ExistsActiveFor(ctx, q.CustomerID)
}
