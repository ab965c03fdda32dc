package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// HeaderAuthToken carries a raw token. It takes precedence over Authorization.
const HeaderAuthToken = "x-auth-token"

// Messages returned in the {"msg": ...} body of a 401.
const (
	MsgNoToken      = "No token, authorization denied"
	MsgInvalidToken = "Token is not valid"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is middleware that rejects requests without a valid token.
// On success the user id is available through UserIDFromContext.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				unauthorized(w, MsgNoToken)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				// The body stays the same for every bad token; the header
				// lets a client tell an expired session from a forged one.
				desc := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					desc = "token expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
				unauthorized(w, MsgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// TokenFromRequest returns the x-auth-token header if present, otherwise the
// second field of the Authorization header ("Bearer <token>").
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(HeaderAuthToken); token != "" {
		return token
	}
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id set by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
