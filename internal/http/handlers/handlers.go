package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/http/cookies"
	"github.com/pribylovaa/go-car-collection/internal/http/middleware"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/service"
)

// Service — бизнес-операции, которые вызывают хендлеры (реализует *service.Service).
type Service interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	CreateCar(ctx context.Context, ownerID string, in models.CarInput) (*models.Car, error)
	UpdateCar(ctx context.Context, ownerID, id string, in models.CarInput) (*models.Car, error)
	GetCar(ctx context.Context, ownerID, id string) (*models.Car, error)
	ListCars(ctx context.Context, ownerID, search string) ([]models.Car, error)
	DeleteCar(ctx context.Context, ownerID, id string) error
}

// ImageOpener отдаёт содержимое объекта изображения по ключу.
// Нужен только для локального режима без S3 (хранилище в памяти).
type ImageOpener interface {
	Open(key string) (io.Reader, string, bool)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc    Service
	jar    *cookies.Manager
	images config.ImagesConfig
	files  ImageOpener
}

// New создаёт Handlers. files может быть nil: тогда /images не обслуживается.
func New(svc Service, jar *cookies.Manager, images config.ImagesConfig, files ImageOpener) *Handlers {
	return &Handlers{
		svc:    svc,
		jar:    jar,
		images: images,
		files:  files,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвосты после объекта.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return &service.ArgumentError{Msg: "invalid JSON body"}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &service.ArgumentError{Msg: "invalid JSON body"}
	}

	return nil
}

// currentUser — пользователь сессии; без мидлвара Session его нет.
func currentUser(r *http.Request) (*models.User, error) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		return nil, service.ErrUnauthorized
	}
	return u, nil
}
