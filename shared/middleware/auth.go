package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identifies the calling service on internal routes.
type ServiceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

const serviceContextKey = "callerService"

// SignServiceToken issues a short-lived HS256 token naming the caller.
func SignServiceToken(secret []byte, service string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("service secret is empty")
	}
	now := time.Now()
	claims := ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ServiceAuth guards internal routes with a bearer service token. An empty
// secret lets every request through; config validation refuses that in
// production.
func ServiceAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims := &ServiceClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired service token")
			c.Abort()
			return
		}

		c.Set(serviceContextKey, claims.Service)
		c.Next()
	}
}

// CallerService returns the service named by the validated token.
func CallerService(c *gin.Context) (string, bool) {
	v, ok := c.Get(serviceContextKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
