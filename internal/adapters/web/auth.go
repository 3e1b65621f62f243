package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type operatorKey struct{}

// Operator is the identity stamped onto records created in a request.
type Operator struct {
	Name string
	Role string
}

// operatorFromContext returns the operator stored in ctx, or nil for anonymous requests.
func operatorFromContext(ctx context.Context) *Operator {
	v, _ := ctx.Value(operatorKey{}).(*Operator)
	return v
}

func operatorName(r *http.Request) string {
	if op := operatorFromContext(r.Context()); op != nil {
		return op.Name
	}
	return ""
}

// operatorClaims is the JWT payload struct used for signing and parsing.
type operatorClaims struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SignOperatorToken issues an HS256 token naming operator, valid for ttl.
func SignOperatorToken(secret, operator, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}
	now := time.Now()
	claims := &operatorClaims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (h *Handler) parseToken(raw string) (*operatorClaims, error) {
	claims := &operatorClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}

// Identity is chi middleware that reads an operator token from the
// Authorization bearer header or the auth_token cookie and injects the
// Operator into the request context. Requests without a token pass through
// anonymously; a token that fails verification is rejected with 401.
func (h *Handler) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		} else if cookie, err := r.Cookie("auth_token"); err == nil {
			raw = cookie.Value
		}
		if raw == "" || h.jwtSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := h.parseToken(raw)
		if err != nil {
			writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		name := claims.Operator
		if name == "" {
			name = claims.Subject
		}
		ctx := context.WithValue(r.Context(), operatorKey{}, &Operator{Name: name, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// me handles GET /api/auth/me and returns the operator bound to the request.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	op := operatorFromContext(r.Context())
	if op == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	type meResponse struct {
		Operator string `json:"operator"`
		Role     string `json:"role"`
	}
	writeJSON(w, meResponse{Operator: op.Name, Role: op.Role})
}
