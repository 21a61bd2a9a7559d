package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/eaglebank/platform/account-service/internal/repository"
	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/consistency"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/events"
	"github.com/eaglebank/platform/shared/gate"
	"github.com/eaglebank/platform/shared/models"
	"github.com/eaglebank/platform/shared/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxNumberAttempts bounds account number generation on collisions.
const MaxNumberAttempts = 5

var (
	ErrAccountNotActive = apperr.BusinessRule("ACCOUNT_NOT_ACTIVE", "Account is not active")
	ErrNonZeroBalance   = apperr.BusinessRule("NON_ZERO_BALANCE", "Account balance must be zero to delete")
)

// AccountStore is the Postgres write store.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	Mutate(ctx context.Context, ref cqrs.AccountRef, fn repository.MutateFunc) (*models.Account, error)
	ExistsActiveFor(ctx context.Context, customerID int64) (bool, error)
}

// ReadModel is the Redis projection kept in step with every commit.
type ReadModel interface {
	CacheAccountView(ctx context.Context, view *models.AccountView)
	InvalidateAccountView(ctx context.Context, id int64, number string)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// CustomerChecker answers whether a registry customer exists.
type CustomerChecker interface {
	ExistsCustomer(ctx context.Context, customerID int64) (gate.Outcome, error)
}

// AccountCommandService writes account state and keeps the read model in sync.
type AccountCommandService struct {
	store        AccountStore
	readModel    ReadModel
	publisher    EventPublisher
	customers    CustomerChecker
	orchestrator *consistency.Orchestrator
	logger       *zap.Logger
	newNumber    func() string
}

func NewAccountCommandService(
	store AccountStore,
	readModel ReadModel,
	publisher EventPublisher,
	customers CustomerChecker,
	logger *zap.Logger,
) *AccountCommandService {
	return &AccountCommandService{
		store:        store,
		readModel:    readModel,
		publisher:    publisher,
		customers:    customers,
		orchestrator: consistency.NewOrchestrator(logger),
		logger:       logger,
		newNumber:    utils.GenerateAccountNumber,
	}
}

// CreateAccount validates the request, confirms the customer exists in the
// registry and only then inserts the account.
func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	if cmd.CustomerID <= 0 {
		return nil, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number")
	}
	accountType, ok := models.ParseAccountType(cmd.Type)
	if !ok {
		return nil, apperr.Validation("INVALID_ACCOUNT_TYPE", "type must be one of SAVINGS, CHECKING")
	}
	if !cmd.InitialBalance.IsPositive() {
		return nil, apperr.Validation("INVALID_INITIAL_BALANCE", "initialBalance must be greater than zero")
	}
	if !models.FitsBalanceScale(cmd.InitialBalance) {
		return nil, apperr.Validation("INVALID_INITIAL_BALANCE", "initialBalance must have at most 2 decimal places")
	}
	initial := models.RoundBalance(cmd.InitialBalance)

	var account *models.Account
	err := s.orchestrator.Run(ctx, consistency.Guard{
		Name: "customer-exists",
		Probe: func(ctx context.Context) (gate.Outcome, error) {
			return s.customers.ExistsCustomer(ctx, cmd.CustomerID)
		},
		Proceed:            gate.Present,
		Reject:             apperr.NotFound("CUSTOMER_NOT_FOUND", fmt.Sprintf("Customer %d not found", cmd.CustomerID)),
		UnavailableCode:    "CUSTOMER_SERVICE_UNAVAILABLE",
		UnavailableMessage: "Customer service unavailable",
	}, func(ctx context.Context) error {
		var err error
		account, err = s.insert(ctx, cmd.CustomerID, accountType, initial)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.readModel.CacheAccountView(ctx, account.View())
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		CustomerID:    account.CustomerID,
		AccountType:   string(account.Type),
		Balance:       account.Balance.StringFixed(models.BalanceScale),
	})
	s.logger.Info("account created",
		zap.Int64("account_id", account.ID),
		zap.String("account_number", account.AccountNumber),
		zap.Int64("customer_id", account.CustomerID))
	return account, nil
}

// insert retries with a fresh number on collision.
func (s *AccountCommandService) insert(ctx context.Context, customerID int64, t models.AccountType, balance decimal.Decimal) (*models.Account, error) {
	for attempt := 1; attempt <= MaxNumberAttempts; attempt++ {
		account := &models.Account{
			AccountNumber: s.newNumber(),
			CustomerID:    customerID,
			Type:          t,
			Status:        models.AccountStatusActive,
			Balance:       balance,
		}
		err := s.store.Create(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrDuplicateAccountNumber) {
			return nil, err
		}
		s.logger.Warn("account number collision",
			zap.String("account_number", account.AccountNumber), zap.Int("attempt", attempt))
	}
	return nil, apperr.Unexpected("ACCOUNT_NUMBER_EXHAUSTED",
		"Could not allocate a unique account number", repository.ErrDuplicateAccountNumber)
}

func (s *AccountCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (*models.Account, error) {
	amount, err := positiveAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}

	account, err := s.store.Mutate(ctx, cmd.Ref, func(a *models.Account) (repository.Mutation, error) {
		if a.Status != models.AccountStatusActive {
			return repository.MutationNone, ErrAccountNotActive
		}
		a.Balance = a.Balance.Add(amount)
		return repository.MutationUpdate, nil
	})
	if err != nil {
		return nil, err
	}

	s.balanceChanged(ctx, account, amount)
	return account, nil
}

// Withdraw rejects any withdrawal that would take the balance below the
// floor of the account's type.
func (s *AccountCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (*models.Account, error) {
	amount, err := positiveAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}

	account, err := s.store.Mutate(ctx, cmd.Ref, func(a *models.Account) (repository.Mutation, error) {
		if a.Status != models.AccountStatusActive {
			return repository.MutationNone, ErrAccountNotActive
		}
		rule, ok := a.Type.Rule()
		if !ok {
			return repository.MutationNone, apperr.Unexpected("UNKNOWN_ACCOUNT_TYPE",
				"Account has an unknown type", fmt.Errorf("account %d type %q", a.ID, a.Type))
		}
		candidate := a.Balance.Sub(amount)
		if candidate.LessThan(rule.Floor) {
			return repository.MutationNone, apperr.BusinessRule(rule.FloorCode, rule.FloorMessage)
		}
		a.Balance = candidate
		return repository.MutationUpdate, nil
	})
	if err != nil {
		return nil, err
	}

	s.balanceChanged(ctx, account, amount.Neg())
	return account, nil
}

// ChangeStatus moves an account between ACTIVE and INACTIVE. Setting the
// current status again is a no-op.
func (s *AccountCommandService) ChangeStatus(ctx context.Context, cmd cqrs.ChangeAccountStatusCommand) (*models.Account, error) {
	status, ok := models.ParseAccountStatus(cmd.Status)
	if !ok {
		return nil, apperr.Validation("INVALID_STATUS", "status must be one of ACTIVE, INACTIVE")
	}

	changed := false
	account, err := s.store.Mutate(ctx, cmd.Ref, func(a *models.Account) (repository.Mutation, error) {
		if a.Status == status {
			return repository.MutationNone, nil
		}
		a.Status = status
		changed = true
		return repository.MutationUpdate, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return account, nil
	}

	s.readModel.CacheAccountView(ctx, account.View())
	s.publish(ctx, events.AccountStatusChanged, events.AccountStatusChangedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Status:        string(account.Status),
	})
	return account, nil
}

// DeleteAccount soft deletes an account whose balance is exactly zero.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	account, err := s.store.Mutate(ctx, cmd.Ref, func(a *models.Account) (repository.Mutation, error) {
		if !a.Balance.IsZero() {
			return repository.MutationNone, ErrNonZeroBalance
		}
		return repository.MutationDelete, nil
	})
	if err != nil {
		return err
	}

	s.readModel.InvalidateAccountView(ctx, account.ID, account.AccountNumber)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		CustomerID:    account.CustomerID,
	})
	s.logger.Info("account deleted",
		zap.Int64("account_id", account.ID), zap.String("account_number", account.AccountNumber))
	return nil
}

// HandleCustomerEvent reacts to customer.deleted. A deleted customer that
// still holds active accounts is logged; nothing is repaired.
func (s *AccountCommandService) HandleCustomerEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.CustomerDeleted {
		return nil
	}
	var data events.CustomerDeletedEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	active, err := s.store.ExistsActiveFor(ctx, data.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to check accounts of deleted customer %d: %w", data.CustomerID, err)
	}
	if active {
		s.logger.Warn("deleted customer still holds active accounts",
			zap.Int64("customer_id", data.CustomerID))
	}
	return nil
}

func (s *AccountCommandService) balanceChanged(ctx context.Context, account *models.Account, change decimal.Decimal) {
	s.readModel.CacheAccountView(ctx, account.View())
	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		NewBalance:    account.Balance.StringFixed(models.BalanceScale),
		Change:        change.StringFixed(models.BalanceScale),
	})
}

func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// positiveAmount rejects amounts that are not positive or carry more than
// BalanceScale fractional digits. Amounts are never rounded.
func positiveAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperr.Validation("INVALID_AMOUNT", "amount must be greater than zero")
	}
	if !models.FitsBalanceScale(amount) {
		return decimal.Zero, apperr.Validation("INVALID_AMOUNT", "amount must have at most 2 decimal places")
	}
	return models.RoundBalance(amount), nil
}
