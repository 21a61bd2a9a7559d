package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/logger"
	"github.com/eaglebank/platform/shared/middleware"
	"github.com/eaglebank/platform/shared/models"
	"github.com/eaglebank/platform/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	Deposit(context.Context, cqrs.DepositCommand) (*models.Account, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.Account, error)
	ChangeStatus(context.Context, cqrs.ChangeAccountStatusCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
	HasActiveAccounts(context.Context, cqrs.ActiveAccountsQuery) (bool, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	CustomerID     int64           `json:"customerId" validate:"required,gt=0"`
	Type           string          `json:"type" validate:"required"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// Register mounts the public routes under /v1/accounts and the guard route
// under /internal, the latter behind internalAuth.
func (h *AccountHandler) Register(router gin.IRouter, internalAuth gin.HandlerFunc) {
	v1 := router.Group("/v1/accounts")
	{
		v1.POST("", h.CreateAccount)
		v1.GET("", h.ListAccounts)
		v1.GET("/:id", h.GetAccount)
		v1.POST("/:id/deposit", h.Deposit)
		v1.POST("/:id/withdraw", h.Withdraw)
		v1.PATCH("/:id/status", h.ChangeStatus)
		v1.DELETE("/:id", h.DeleteAccount)

		v1.GET("/number/:accountNumber", h.GetAccount)
		v1.POST("/number/:accountNumber/deposit", h.Deposit)
		v1.POST("/number/:accountNumber/withdraw", h.Withdraw)
	}

	internal := router.Group("/internal", internalAuth)
	internal.GET("/accounts/active", h.HasActiveAccounts)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		CustomerID:     req.CustomerID,
		Type:           req.Type,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account.View())
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var q cqrs.ListAccountsQuery
	if raw := c.Query("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.RespondWithAppError(c, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number"))
			return
		}
		q.CustomerID = id
	}

	views, err := h.queries.ListAccounts(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}

	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{Ref: ref})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) Deposit(c *gin.Context) {
	ref, amount, ok := amountRequest(c)
	if !ok {
		return
	}

	account, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{Ref: ref, Amount: amount})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.View())
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	ref, amount, ok := amountRequest(c)
	if !ok {
		return
	}

	account, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{Ref: ref, Amount: amount})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.View())
}

func (h *AccountHandler) ChangeStatus(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.ChangeStatus(c.Request.Context(), cqrs.ChangeAccountStatusCommand{Ref: ref, Status: req.Status})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.View())
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}

	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{Ref: ref}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HasActiveAccounts answers the registry's guard with a bare JSON boolean.
func (h *AccountHandler) HasActiveAccounts(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("customerId"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithAppError(c, apperr.Validation("INVALID_CUSTOMER_ID", "customerId must be a positive number"))
		return
	}

	active, err := h.queries.HasActiveAccounts(c.Request.Context(), cqrs.ActiveAccountsQuery{CustomerID: id})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	caller, _ := middleware.CallerService(c)
	logger.FromGin(c).Debug("active accounts checked",
		zap.String("caller", caller),
		zap.Int64("customer_id", id),
		zap.Bool("active", active))
	c.JSON(http.StatusOK, active)
}

// accountRef reads :id or :accountNumber, writing a 400 on failure.
func accountRef(c *gin.Context) (cqrs.AccountRef, bool) {
	if number := c.Param("accountNumber"); number != "" {
		if !utils.ValidateAccountNumber(number) {
			middleware.RespondWithAppError(c, apperr.Validation("INVALID_ACCOUNT_NUMBER", "Account number must be 16 digits with a valid checksum"))
			return cqrs.AccountRef{}, false
		}
		return cqrs.ByNumber(number), true
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithAppError(c, apperr.Validation("INVALID_ACCOUNT_ID", "Account id must be a positive number"))
		return cqrs.AccountRef{}, false
	}
	return cqrs.ByID(id), true
}

func amountRequest(c *gin.Context) (cqrs.AccountRef, decimal.Decimal, bool) {
	ref, ok := accountRef(c)
	if !ok {
		return ref, decimal.Zero, false
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return ref, decimal.Zero, false
	}
	return ref, req.Amount, true
}
