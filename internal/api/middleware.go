package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// AccountHeader carries the caller identity resolved by the upstream
// authenticator.
const AccountHeader = "X-Account-ID"

type accountKey struct{}

// RequireAccount rejects requests without a caller identity.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(AccountHeader))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing "+AccountHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), accountKey{}, id)
		ctx = logging.With(ctx, "accountId", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(r *http.Request) string {
	id, _ := r.Context().Value(accountKey{}).(string)
	return id
}

// RequestLogger scopes a logger with the request id to every request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), slog.Default().With(
			"requestId", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggerFrom(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context())
}
