// service содержит бизнес-логику сервиса коллекции автомобилей:
// выпуск/проверку токенов, разрешение сессии запроса, регистрацию и вход,
// а также операции над записями владельца и их изображениями.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при условии, что хранилища потокобезопасны.
//   - Ошибки хранилищ переводятся в ошибки пакета (см. переменные ниже),
//     которые HTTP-слой маппит на статусы.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// HTTP 401, ответ одинаков для обоих случаев.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken — токен некорректен по формату/подписи/issuer,
	// истёк (для refresh) или его пользователь не найден. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк.
	// Используется только при разрешении сессии для перехода к refresh.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthorized — нет токенов или refresh-токен недействителен. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized please login")

	// ErrForbidden — access-токен предъявлен, но недействителен
	// или его пользователь не найден. HTTP 403.
	ErrForbidden = errors.New("invalid access token")

	// ErrEmailTaken — e-mail уже занят. HTTP 400.
	ErrEmailTaken = errors.New("user already exists")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче 8 символов. HTTP 400.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrInvalidArgument — нарушены ограничения входных данных. HTTP 400.
	// Детали для клиента переносит *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound — запись не найдена или принадлежит другому владельцу. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrStorage — сбой хранилища изображений. HTTP 500.
	ErrStorage = errors.New("image storage failure")

	// ErrInternal — прочие внутренние сбои (БД, подпись токена). HTTP 500.
	ErrInternal = errors.New("internal error")
)

// ArgumentError — ошибка входных данных с сообщением, безопасным для клиента.
// errors.Is(err, ErrInvalidArgument) == true.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return ErrInvalidArgument.Error() + ": " + e.Msg }

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArg(format string, args ...any) error {
	return &ArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// Service описывает бизнес-логику сервиса.
type Service struct {
	storage storage.Storage
	images  storage.ImageStorage
	cfg     config.AuthConfig
	now     func() time.Time
	// checkPassword сравнивает пароль с bcrypt-хэшем; подменяется в тестах.
	checkPassword func(hash, password string) bool
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, images storage.ImageStorage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: st,
		images:  images,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },

		checkPassword: checkPassword,
	}
}

// fromStorage переводит ошибку хранилища записей в ошибку пакета, сохраняя цепочку.
func fromStorage(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, storage.ErrStorage):
		return fmt.Errorf("%w: %w", ErrStorage, err)
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}
