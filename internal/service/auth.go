package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/pkg/log"
	"github.com/pribylovaa/go-car-collection/internal/pkg/redact"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLen — минимальная длина пароля в рунах.
const minPasswordLen = 8

// dummyPasswordHash — хэш, с которым сравнивается пароль при неизвестном email,
// чтобы время ответа не выдавало существование аккаунта.
var dummyPasswordHash = sync.OnceValue(func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("car-collection/no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}

	return string(h)
})

// Register регистрирует пользователя. Токены не выпускаются: клиент затем входит через Login.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, invalidArg("name is required"))
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Name:         name,
		Email:        normEmail,
		PasswordHash: hashedPassword,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// гонка двух регистраций: уникальный индекс ловит вторую.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, nil
}

// Login выполняет вход по email+пароль и выпускает пару токенов.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.checkPassword(dummyPasswordHash(), password)
			lg.Warn("login_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	if !s.checkPassword(user.PasswordHash, password) {
		lg.Warn("login_wrong_password",
			slog.String("op", op),
			slog.String("user_id", user.ID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	access, accessExp, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := s.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in",
		slog.String("op", op),
		slog.String("user_id", user.ID),
	)

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// hashPassword хэширует пароль с помощью bcrypt (cost 10).
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и нормализует его (trim + lower).
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}

// validatePassword — длина не меньше minPasswordLen рун.
// bcrypt не принимает пароли длиннее 72 байт.
func validatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLen {
		return ErrWeakPassword
	}

	if len(pw) > 72 {
		return invalidArg("password must be at most 72 bytes")
	}

	return nil
}
