package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
)

// Authenticator resolves the user behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AccessToken prefers the Authorization header and falls back to the access cookie.
func AccessToken(r *http.Request) string {
	if t := BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if c, err := r.Cookie(auth.AccessCookie); err == nil {
		return c.Value
	}
	return ""
}

// Auth rejects requests without a valid access token and stores the user in context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AccessToken(r)
			if token == "" {
				writeCode(w, r, appErr.CodeUnauthorized, "Not authorized, no token provided")
				return
			}
			u, err := a.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireRoles must run after Auth.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := CurrentUser(r.Context())
			if u == nil {
				writeCode(w, r, appErr.CodeUnauthorized, "Not authorized")
				return
			}
			if !u.Role.In(roles...) {
				writeCode(w, r, appErr.CodeForbidden, fmt.Sprintf("Role '%s' is not authorized to access this resource", u.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
