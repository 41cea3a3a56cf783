package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/pkg/log"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

// SessionKind — исход разрешения сессии запроса.
type SessionKind int

const (
	// SessionRejected — запрос отклонён, причина в Session.Reason.
	SessionRejected SessionKind = iota
	// SessionAuthenticated — действительный access-токен, пользователь найден.
	SessionAuthenticated
	// SessionRefreshed — access-токена нет (или истёк), по refresh-токену выпущен новый access.
	SessionRefreshed
)

func (k SessionKind) String() string {
	switch k {
	case SessionAuthenticated:
		return "authenticated"
	case SessionRefreshed:
		return "refreshed"
	default:
		return "rejected"
	}
}

// Session — результат ResolveSession.
//   - Authenticated: User;
//   - Refreshed: User, AccessToken, AccessExpiresAt (их нужно отдать клиенту в cookie);
//   - Rejected: Reason — ErrUnauthorized (401), ErrForbidden (403) или ErrInternal (500).
type Session struct {
	Kind            SessionKind
	User            *models.User
	AccessToken     string
	AccessExpiresAt time.Time
	Reason          error
}

func rejected(reason error) Session {
	return Session{Kind: SessionRejected, Reason: reason}
}

// ResolveSession определяет сессию по паре токенов из cookie.
// Порядок:
//  1. Есть access: действителен и пользователь найден — Authenticated;
//     истёк и есть refresh — переход к п.2; иначе — Rejected(ErrForbidden).
//  2. Нет refresh — Rejected(ErrUnauthorized). Refresh действителен — новый access,
//     Refreshed. Refresh недействителен — Rejected(ErrUnauthorized).
//
// Сбои хранилища дают Rejected(ErrInternal).
func (s *Service) ResolveSession(ctx context.Context, accessToken, refreshToken string) Session {
	const op = "service.session.ResolveSession"

	lg := log.From(ctx)

	if accessToken != "" {
		userID, err := s.verifyAccessToken(accessToken)
		switch {
		case err == nil:
			user, err := s.storage.UserByID(ctx, userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					lg.Warn("session_user_not_found",
						slog.String("op", op),
						slog.String("user_id", userID),
					)
					return rejected(ErrForbidden)
				}

				lg.Error("session_user_lookup_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
				return rejected(ErrInternal)
			}

			return Session{Kind: SessionAuthenticated, User: user}

		case errors.Is(err, ErrTokenExpired) && refreshToken != "":
			lg.Debug("session_access_expired", slog.String("op", op))

		default:
			lg.Warn("session_access_rejected",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return rejected(ErrForbidden)
		}
	}

	if refreshToken == "" {
		return rejected(ErrUnauthorized)
	}

	user, err := s.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInternal) {
			return rejected(ErrInternal)
		}

		return rejected(ErrUnauthorized)
	}

	token, exp, err := s.IssueAccessToken(user)
	if err != nil {
		lg.Error("session_access_issue_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return rejected(ErrInternal)
	}

	lg.Info("session_refreshed",
		slog.String("op", op),
		slog.String("user_id", user.ID),
	)

	return Session{
		Kind:            SessionRefreshed,
		User:            user,
		AccessToken:     token,
		AccessExpiresAt: exp,
	}
}
