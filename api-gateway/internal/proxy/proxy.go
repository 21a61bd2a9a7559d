// Package proxy forwards public API routes from the gateway to the ledger
// and the registry. Internal routes are never exposed.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/eaglebank/platform/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upstreams are the base URLs of the services behind the gateway.
type Upstreams struct {
	LedgerURL   string
	RegistryURL string
}

// Register mounts /v1/accounts and /v1/customers, each forwarded to its
// owning service with path and query unchanged.
func Register(router gin.IRouter, up Upstreams, logger *zap.Logger) error {
	ledger, err := To(up.LedgerURL, logger)
	if err != nil {
		return fmt.Errorf("ledger upstream: %w", err)
	}
	registry, err := To(up.RegistryURL, logger)
	if err != nil {
		return fmt.Errorf("registry upstream: %w", err)
	}

	router.Any("/v1/accounts", ledger)
	router.Any("/v1/accounts/*path", ledger)
	router.Any("/v1/customers", registry)
	router.Any("/v1/customers/*path", registry)
	return nil
}

// To returns a handler that forwards the request to serviceURL.
func To(serviceURL string, logger *zap.Logger) (gin.HandlerFunc, error) {
	target, err := url.Parse(strings.TrimSuffix(serviceURL, "/"))
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid service url %q", serviceURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Error proxying request",
			zap.String("upstream", target.Host),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(middleware.ErrorResponse{
			Code:    "UPSTREAM_UNAVAILABLE",
			Message: "Service unavailable",
		})
	}

	return func(c *gin.Context) {
		rp.ServeHTTP(c.Writer, c.Request)
	}, nil
}
