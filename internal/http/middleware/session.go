package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-car-collection/internal/errors"
	"github.com/pribylovaa/go-car-collection/internal/http/cookies"
	"github.com/pribylovaa/go-car-collection/internal/models"
	logctx "github.com/pribylovaa/go-car-collection/internal/pkg/log"
	"github.com/pribylovaa/go-car-collection/internal/service"
)

// SessionResolver — источник решения о сессии запроса (реализует *service.Service).
type SessionResolver interface {
	ResolveSession(ctx context.Context, accessToken, refreshToken string) service.Session
}

type userKey struct{}

// UserFrom возвращает пользователя сессии, положенного мидлваром Session.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// Session требует действующую сессию:
//   - Authenticated — пользователь в контексте, запрос идёт дальше;
//   - Refreshed — то же плюс новая cookie accessToken в ответе;
//   - Rejected — конверт ошибки (401/403/500), хендлер не вызывается.
func Session(resolver SessionResolver, jar *cookies.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, refresh := cookies.Tokens(r)

			sess := resolver.ResolveSession(r.Context(), access, refresh)

			switch sess.Kind {
			case service.SessionAuthenticated, service.SessionRefreshed:
				if sess.Kind == service.SessionRefreshed {
					jar.SetAccess(w, sess.AccessToken, sess.AccessExpiresAt)
				}

				ctx := WithUser(r.Context(), sess.User)
				ctx = logctx.With(ctx, slog.String("user_id", sess.User.ID))
				next.ServeHTTP(w, r.WithContext(ctx))

			default:
				logctx.From(r.Context()).Debug("session_rejected",
					slog.String("path", r.URL.Path),
					slog.Any("reason", sess.Reason),
				)
				apierrors.WriteError(w, r, sess.Reason)
			}
		})
	}
}
