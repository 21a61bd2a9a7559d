package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceAuthRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/internal/ping", ServiceAuth(secret), func(c *gin.Context) {
		caller, _ := CallerService(c)
		c.String(http.StatusOK, caller)
	})
	return r
}

func TestServiceAuth(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	valid, err := SignServiceToken(secret, "account-service", time.Minute)
	require.NoError(t, err)
	expired, err := SignServiceToken(secret, "account-service", -time.Minute)
	require.NoError(t, err)
	foreign, err := SignServiceToken([]byte("another-secret"), "account-service", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"signed with another secret", "Bearer " + foreign, http.StatusUnauthorized},
	}
	router := newServiceAuthRouter(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/internal/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "account-service", w.Body.String())
			}
		})
	}
}

func TestServiceAuthDisabledWithoutSecret(t *testing.T) {
	router := newServiceAuthRouter(nil)
	req, _ := http.NewRequest(http.MethodGet, "/internal/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignServiceTokenRequiresSecret(t *testing.T) {
	_, err := SignServiceToken(nil, "account-service", time.Minute)
	assert.Error(t, err)
}
