package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/pkg/log"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

// tokenClaims — полезная нагрузка access и refresh токенов.
// Тип токена определяется секретом подписи, а не полем в claims.
type tokenClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// IssueAccessToken выпускает access-токен пользователя (секрет access, TTL access).
func (s *Service) IssueAccessToken(user *models.User) (string, time.Time, error) {
	const op = "service.token.IssueAccessToken"

	token, exp, err := s.issueToken(user.ID, s.cfg.AccessSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, exp, nil
}

// IssueRefreshToken выпускает refresh-токен пользователя (секрет refresh, TTL refresh).
func (s *Service) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	const op = "service.token.IssueRefreshToken"

	token, exp, err := s.issueToken(user.ID, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, exp, nil
}

// VerifyRefreshToken проверяет refresh-токен и загружает его пользователя.
// Любая проблема с токеном или отсутствие пользователя — ErrInvalidToken;
// сбой хранилища — ErrInternal.
func (s *Service) VerifyRefreshToken(ctx context.Context, token string) (*models.User, error) {
	const op = "service.token.VerifyRefreshToken"

	lg := log.From(ctx)

	userID, err := s.parseToken(token, s.cfg.RefreshSecret)
	if err != nil {
		lg.Warn("refresh_token_rejected",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_token_user_not_found",
				slog.String("op", op),
				slog.String("user_id", userID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_token_user_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	return user, nil
}

// verifyAccessToken проверяет access-токен и возвращает ID пользователя.
// Истёкший токен — ErrTokenExpired, прочие проблемы — ErrInvalidToken.
func (s *Service) verifyAccessToken(token string) (string, error) {
	const op = "service.token.verifyAccessToken"

	userID, err := s.parseToken(token, s.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (s *Service) issueToken(userID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)

	claims := tokenClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign: %w", ErrInternal, err)
	}

	return signed, exp, nil
}

// parseToken проверяет подпись (только HS256), issuer и срок с допуском 5s.
func (s *Service) parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}

		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}

	return claims.ID, nil
}
