package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/eaglebank/platform/customer-service/internal/repository"
	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/consistency"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/events"
	"github.com/eaglebank/platform/shared/gate"
	"github.com/eaglebank/platform/shared/middleware"
	"github.com/eaglebank/platform/shared/models"
	"go.uber.org/zap"
)

var ErrHasActiveAccounts = apperr.BusinessRule("CUSTOMER_HAS_ACTIVE_ACCOUNTS", "Customer still has active accounts")

// CustomerStore is the Postgres write store.
type CustomerStore interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id int64) error
}

// ReadModel is the Redis projection kept in step with every commit.
type ReadModel interface {
	CacheCustomerView(ctx context.Context, view *models.CustomerView)
	InvalidateCustomerView(ctx context.Context, id int64)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountChecker answers whether a customer holds active ledger accounts.
type AccountChecker interface {
	HasActiveAccounts(ctx context.Context, customerID int64) (gate.Outcome, error)
}

// CustomerCommandService writes customer state to PostgreSQL and keeps the
// Redis read model up to date.
type CustomerCommandService struct {
	store        CustomerStore
	readModel    ReadModel
	publisher    EventPublisher
	accounts     AccountChecker
	orchestrator *consistency.Orchestrator
	logger       *zap.Logger
}

func NewCustomerCommandService(
	store CustomerStore,
	readModel ReadModel,
	publisher EventPublisher,
	accounts AccountChecker,
	logger *zap.Logger,
) *CustomerCommandService {
	return &CustomerCommandService{
		store:        store,
		readModel:    readModel,
		publisher:    publisher,
		accounts:     accounts,
		orchestrator: consistency.NewOrchestrator(logger),
		logger:       logger,
	}
}

type customerInput struct {
	FirstName  string `validate:"required"`
	LastName   string `validate:"required"`
	NationalID string `validate:"required"`
	Email      string `validate:"required,email"`
}

// normalize trims every field and lower-cases the email.
func normalize(in customerInput) customerInput {
	return customerInput{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		NationalID: strings.TrimSpace(in.NationalID),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
	}
}

func validate(in customerInput) error {
	if errs := middleware.ValidateRequest(in); errs != nil {
		first := errs[0]
		return apperr.Validation("INVALID_CUSTOMER", fmt.Sprintf("%s: %s", first.Field, first.Message))
	}
	return nil
}

func (s *CustomerCommandService) CreateCustomer(ctx context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
	in := normalize(customerInput{
		FirstName:  cmd.FirstName,
		LastName:   cmd.LastName,
		NationalID: cmd.NationalID,
		Email:      cmd.Email,
	})
	if err := validate(in); err != nil {
		return nil, err
	}

	// Fast path only; the unique index decides under concurrency.
	exists, err := s.store.ExistsByNationalID(ctx, in.NationalID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrDuplicateNationalID
	}

	customer := &models.Customer{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		NationalID: in.NationalID,
		Email:      in.Email,
	}
	if err := s.store.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.readModel.CacheCustomerView(ctx, customer.View())
	s.publish(ctx, events.CustomerCreated, events.CustomerCreatedEvent{
		CustomerID: customer.ID,
		NationalID: customer.NationalID,
		Email:      customer.Email,
	})
	s.logger.Info("customer created", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

// UpdateCustomer replaces names and email. The national id stays as created.
func (s *CustomerCommandService) UpdateCustomer(ctx context.Context, cmd cqrs.UpdateCustomerCommand) (*models.Customer, error) {
	customer, err := s.store.GetByID(ctx, cmd.CustomerID)
	if err != nil {
		return nil, err
	}

	in := normalize(customerInput{
		FirstName:  cmd.FirstName,
		LastName:   cmd.LastName,
		NationalID: customer.NationalID,
		Email:      cmd.Email,
	})
	if err := validate(in); err != nil {
		return nil, err
	}

	customer.FirstName = in.FirstName
	customer.LastName = in.LastName
	customer.Email = in.Email
	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}

	s.readModel.CacheCustomerView(ctx, customer.View())
	s.publish(ctx, events.CustomerUpdated, events.CustomerUpdatedEvent{
		CustomerID: customer.ID,
		Email:      customer.Email,
	})
	return customer, nil
}

// DeleteCustomer asks the ledger for active accounts first and deletes only
// on a definite "none".
func (s *CustomerCommandService) DeleteCustomer(ctx context.Context, cmd cqrs.DeleteCustomerCommand) error {
	if _, err := s.store.GetByID(ctx, cmd.CustomerID); err != nil {
		return err
	}

	err := s.orchestrator.Run(ctx, consistency.Guard{
		Name: "active-accounts",
		Probe: func(ctx context.Context) (gate.Outcome, error) {
			return s.accounts.HasActiveAccounts(ctx, cmd.CustomerID)
		},
		Proceed:            gate.Absent,
		Reject:             ErrHasActiveAccounts,
		UnavailableCode:    "ACCOUNT_SERVICE_UNAVAILABLE",
		UnavailableMessage: "Account service unavailable",
	}, func(ctx context.Context) error {
		return s.store.Delete(ctx, cmd.CustomerID)
	})
	if err != nil {
		return err
	}

	s.readModel.InvalidateCustomerView(ctx, cmd.CustomerID)
	s.publish(ctx, events.CustomerDeleted, events.CustomerDeletedEvent{CustomerID: cmd.CustomerID})
	s.logger.Info("customer deleted", zap.Int64("customer_id", cmd.CustomerID))
	return nil
}

func (s *CustomerCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.CustomerEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
