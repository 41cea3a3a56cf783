package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-car-collection/internal/errors"
	logctx "github.com/pribylovaa/go-car-collection/internal/pkg/log"
)

// Recover перехватывает panic и отвечает 500/internal; детали паники не утекают на клиент.
// http.ErrAbortHandler пробрасывается дальше: net/http обрывает соединение без лога.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).
					LogAttrs(r.Context(), slog.LevelError, "panic",
						slog.String("path", r.URL.Path),
						slog.Any("reason", rec),
					)
				apierrors.WriteError(w, r, fmt.Errorf("panic recovered"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
