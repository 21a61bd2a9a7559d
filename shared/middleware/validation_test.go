package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"validation", apperr.Validation("INVALID_AMOUNT", "Amount must be greater than zero"), http.StatusBadRequest, "INVALID_AMOUNT"},
		{"not found", apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found"), http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
		{"business rule", apperr.BusinessRule("NON_ZERO_BALANCE", "Balance must be zero"), http.StatusConflict, "NON_ZERO_BALANCE"},
		{"unavailable", apperr.Unavailable("CUSTOMER_SERVICE_UNAVAILABLE", "Customer service unavailable", errors.New("timeout")), http.StatusServiceUnavailable, "CUSTOMER_SERVICE_UNAVAILABLE"},
		{"unclassified", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithAppError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCode, body.Code)
			assert.NotContains(t, body.Message, "db exploded")
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}
	assert.Nil(t, ValidateRequest(req{Email: "a@b.co", Name: "x"}))

	errs := ValidateRequest(req{Email: "nope"})
	require.Len(t, errs, 2)
	assert.Equal(t, "Email", errs[0].Field)
	assert.Equal(t, "email", errs[0].Type)
	assert.Equal(t, "Name", errs[1].Field)
}
