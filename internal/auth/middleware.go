package auth

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"quizforge-service/internal/domain"
)

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying who.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, who)
}

// FromContext returns the identity stored by Middleware, or an anonymous one.
func FromContext(ctx context.Context) domain.Identity {
	who, _ := ctx.Value(ctxKey{}).(domain.Identity)
	return who
}

// Middleware resolves the Authorization bearer token (or the access_token query parameter,
// for WebSocket clients) into an identity. Requests without a valid token continue
// anonymously; owner-only operations reject them downstream.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			who, err := v.Identify(token)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
		})
	}
}

func bearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
