package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/syncink-attendance/internal/auth"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

type ctxKey struct{}

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (models.User, error)
}

// RequireAuth verifies the bearer token and loads the current user into the
// request context. Tokens for deleted users are rejected.
func RequireAuth(tokens *auth.TokenManager, users UserLookup, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		user, err := users.FindUserByID(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			logger.Error("load token subject", "user_id", claims.Subject, "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to load user")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// CurrentUser returns the authenticated user stored by RequireAuth.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
