package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "partnerd/pkg/domain"
)

// Callers prove control of an address out of band (the gateway issues a token
// after signature verification); this layer only validates the token and binds
// the address to the request context.

type callerKey struct{}

// ContextKeyCaller is exported for tests that need to inject a caller directly.
var ContextKeyCaller = callerKey{}

// JWTValidator validates a bearer token and returns the caller address claim.
type JWTValidator interface {
	Validate(token string) (id.Address, error)
}

// HMACValidator validates HS256 tokens whose subject is the caller address.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) Validate(token string) (id.Address, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	})
	if err != nil {
		return id.ZeroAddress, err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return id.ZeroAddress, err
	}
	return id.ParseAddress(sub)
}

// RequireCaller rejects requests without a valid bearer token and stores the
// authenticated caller address in the request context.
func RequireCaller(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			caller, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCaller, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller retrieves the authenticated caller address from the context.
// Returns the zero address when the request was not authenticated.
func GetCaller(ctx context.Context) id.Address {
	if addr, ok := ctx.Value(ContextKeyCaller).(id.Address); ok {
		return addr
	}
	return id.ZeroAddress
}
