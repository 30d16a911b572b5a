// internal/middleware/jwt.go
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bipv-docs/internal/api"
	"bipv-docs/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const issuer = "bipv-docs-api"

// Claims represents the JWT claims for our application
type Claims struct {
	Username     string `json:"username"`
	Organization string `json:"organization"`
	jwt.RegisteredClaims
}

// UnprotectedRoutes defines routes that don't require JWT authentication
var UnprotectedRoutes = map[string]bool{
	"/health":        true,
	"/user/register": true,
	"/user/login":    true,
	"/ws":            true, // token travels in the query string
}

// JWT signs and checks tokens with one HMAC secret.
type JWT struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewJWT(secret string, expiration time.Duration) *JWT {
	return &JWT{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a new JWT token for the given user
func (j *JWT) GenerateToken(username, organization string) (string, error) {
	now := j.now()
	claims := &Claims{
		Username:     username,
		Organization: organization,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return tokenString, nil
}

// ValidateToken validates the provided JWT token
func (j *JWT) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return j.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Username != "" {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// AuthMiddleware is a middleware function to validate JWT tokens
func (j *JWT) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UnprotectedRoutes[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, utils.NewUnauthorizedError("authorization header required"))
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeAuthError(w, utils.NewUnauthorizedError("invalid authorization format"))
			return
		}

		claims, err := j.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logrus.WithError(err).Debug("JWT validation failed")
			writeAuthError(w, utils.NewAppError(utils.ErrInvalidToken, "Invalid token", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(SetClaimsInContext(r.Context(), claims)))
	})
}

func writeAuthError(w http.ResponseWriter, appErr *utils.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(utils.AppErrorToHTTPStatus(appErr.Code))
	if err := json.NewEncoder(w).Encode(api.Fail(appErr.Message, appErr.Code)); err != nil {
		logrus.WithError(err).Error("Failed to encode auth error")
	}
}

// Define a custom context key type to avoid collisions
type contextKey string

// ClaimsKey is the key used to store the token claims in the context
const ClaimsKey contextKey = "claims"

// SetClaimsInContext saves the caller's claims in the request context
func SetClaimsInContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaimsFromContext retrieves the caller's claims from the context
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
