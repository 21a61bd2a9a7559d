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
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CustomerCommander defines the write-side operations used by CustomerHandler.
type CustomerCommander interface {
	CreateCustomer(context.Context, cqrs.CreateCustomerCommand) (*models.Customer, error)
	UpdateCustomer(context.Context, cqrs.UpdateCustomerCommand) (*models.Customer, error)
	DeleteCustomer(context.Context, cqrs.DeleteCustomerCommand) error
}

// CustomerQuerier defines the read-side operations used by CustomerHandler.
type CustomerQuerier interface {
	GetCustomer(context.Context, cqrs.GetCustomerQuery) (*models.CustomerView, error)
	ListCustomers(context.Context, cqrs.ListCustomersQuery) ([]models.CustomerView, error)
	Exists(context.Context, cqrs.GetCustomerQuery) (bool, error)
}

// CustomerHandler routes requests to the command or query service as appropriate.
type CustomerHandler struct {
	commands CustomerCommander
	queries  CustomerQuerier
}

// Fields are normalised and fully validated by the command service.
type CreateCustomerRequest struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	NationalID string `json:"nationalId" validate:"required"`
	Email      string `json:"email" validate:"required"`
}

// UpdateCustomerRequest accepts a nationalId so clients can resubmit the
// whole resource; it is ignored.
type UpdateCustomerRequest struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	NationalID string `json:"nationalId"`
	Email      string `json:"email" validate:"required"`
}

type ListCustomersResponse struct {
	Customers []models.CustomerView `json:"customers"`
}

func NewCustomerHandler(commands CustomerCommander, queries CustomerQuerier) *CustomerHandler {
	return &CustomerHandler{commands: commands, queries: queries}
}

// Register mounts the public routes under /v1/customers and the existence
// route under /internal, the latter behind internalAuth.
func (h *CustomerHandler) Register(router gin.IRouter, internalAuth gin.HandlerFunc) {
	v1 := router.Group("/v1/customers")
	{
		v1.POST("", h.CreateCustomer)
		v1.GET("", h.ListCustomers)
		v1.GET("/:id", h.GetCustomer)
		v1.PUT("/:id", h.UpdateCustomer)
		v1.DELETE("/:id", h.DeleteCustomer)
	}

	internal := router.Group("/internal", internalAuth)
	internal.GET("/customers/:id", h.CustomerExists)
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	customer, err := h.commands.CreateCustomer(c.Request.Context(), cqrs.CreateCustomerCommand{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		NationalID: req.NationalID,
		Email:      req.Email,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer.View())
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	views, err := h.queries.ListCustomers(c.Request.Context(), cqrs.ListCustomersQuery{})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListCustomersResponse{Customers: views})
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}
	view, err := h.queries.GetCustomer(c.Request.Context(), cqrs.GetCustomerQuery{CustomerID: id})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	customer, err := h.commands.UpdateCustomer(c.Request.Context(), cqrs.UpdateCustomerCommand{
		CustomerID: id,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer.View())
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}
	if err := h.commands.DeleteCustomer(c.Request.Context(), cqrs.DeleteCustomerCommand{CustomerID: id}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CustomerExists answers 200 with the customer or 404. An unparseable id is
// a customer that cannot exist.
func (h *CustomerHandler) CustomerExists(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithAppError(c, apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found"))
		return
	}

	q := cqrs.GetCustomerQuery{CustomerID: id}
	exists, err := h.queries.Exists(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if !exists {
		middleware.RespondWithAppError(c, apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found"))
		return
	}

	view, err := h.queries.GetCustomer(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	caller, _ := middleware.CallerService(c)
	logger.FromGin(c).Debug("customer existence confirmed", zap.String("caller", caller), zap.Int64("customer_id", id))
	c.JSON(http.StatusOK, view)
}

func customerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithAppError(c, apperr.Validation("INVALID_CUSTOMER_ID", "Customer id must be a positive number"))
		return 0, false
	}
	return id, true
}
