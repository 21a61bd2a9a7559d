package query

import (
	"context"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/models"
)

// CustomerReader is the read side of the customer store.
type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*models.CustomerView, error)
	List(ctx context.Context) ([]models.CustomerView, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type CustomerQueryService struct {
	readRepo CustomerReader
}

func NewCustomerQueryService(readRepo CustomerReader) *CustomerQueryService {
	return &CustomerQueryService{readRepo: readRepo}
}

func (s *CustomerQueryService) GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
	if q.CustomerID <= 0 {
		return nil, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number")
	}
	return s.readRepo.GetByID(ctx, q.CustomerID)
}

func (s *CustomerQueryService) ListCustomers(ctx context.Context, _ cqrs.ListCustomersQuery) ([]models.CustomerView, error) {
	return s.readRepo.List(ctx)
}

// Exists backs the internal existence route read by the ledger.
func (s *CustomerQueryService) Exists(ctx context.Context, q cqrs.GetCustomerQuery) (bool, error) {
	if q.CustomerID <= 0 {
		return false, nil
	}
	return s.readRepo.Exists(ctx, q.CustomerID)
}
