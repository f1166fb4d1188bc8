package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auditescrow/pkg/ids"
)

// Caller identity travels as a JWT bearer token whose "addr" claim is the
// caller's protocol address. Handlers never take identity from request
// bodies.

// JWTValidator verifies bearer tokens and extracts the caller address.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type callerClaims struct {
	Address string `json:"addr"`
	jwt.RegisteredClaims
}

// Validate parses and verifies a token, returning the caller address.
func (v *JWTValidator) Validate(tokenString string) (ids.Address, error) {
	var claims callerClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	return ids.Address(claims.Address), nil
}

// Issue mints a token for an address. Used by tests and operator tooling.
func (v *JWTValidator) Issue(addr ids.Address, ttl time.Duration) (string, error) {
	claims := callerClaims{
		Address: string(addr),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller address in context.
func RequireAuth(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			addr, err := validator.Validate(token)
			if err != nil || addr.IsZero() {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, addr)))
		})
	}
}

// GetCaller returns the authenticated caller address, empty if absent.
func GetCaller(ctx context.Context) ids.Address {
	addr, _ := ctx.Value(callerKey).(ids.Address)
	return addr
}
