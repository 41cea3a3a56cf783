// Package storage описывает контракты хранилищ сервиса и общие для всех
// бэкендов ошибки. Реализации: mongo, postgres, memory (записи) и
// minio, memory (изображения).
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-car-collection/internal/models"
)

var (
	// ErrNotFound — запись не найдена (или принадлежит другому владельцу).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — нарушены ограничения запроса (тип/размер файла, битый URL).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorage — сбой внешнего хранилища объектов.
	ErrStorage = errors.New("storage failure")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя; ID, CreatedAt и UpdatedAt заполняются хранилищем.
	// Занятый email — ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по нормализованному email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID; битый ID — ErrNotFound.
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// CarStorage выполняет операции над записями коллекции.
// Все чтения и мутации ограничены владельцем: чужая запись неотличима от отсутствующей.
type CarStorage interface {
	// CreateCar сохраняет запись; ID, CreatedAt и UpdatedAt заполняются хранилищем.
	CreateCar(ctx context.Context, car models.Car) (*models.Car, error)
	// CarByID возвращает запись владельца.
	CarByID(ctx context.Context, ownerID, id string) (*models.Car, error)
	// ListCars возвращает записи владельца, новые первыми (created_at DESC, id DESC).
	// Непустой search — регистронезависимая подстрока в title, description или любом теге.
	ListCars(ctx context.Context, ownerID, search string) ([]models.Car, error)
	// UpdateCar перезаписывает изменяемые поля (title, description, tags, image_urls,
	// image_count) и выставляет updated_at.
	UpdateCar(ctx context.Context, car models.Car) (*models.Car, error)
	// DeleteCar удаляет запись владельца.
	DeleteCar(ctx context.Context, ownerID, id string) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	CarStorage
	Close(ctx context.Context) error
}

// ImageStorage — контракт хранилища изображений.
// Ключ объекта: users/<ownerID>/cars/<uuid>.<ext>; наружу отдаётся публичный URL.
type ImageStorage interface {
	// CheckImage проверяет файл по лимитам без обращения к хранилищу.
	// Недопустимый тип/размер — ErrInvalidArgument.
	CheckImage(img models.Image) error
	// UploadImage загружает файл и возвращает его публичный URL.
	// Недопустимый тип/размер — ErrInvalidArgument, сбой — ErrStorage.
	UploadImage(ctx context.Context, ownerID string, img models.Image) (string, error)
	// DeleteImage удаляет объект, имя которого берётся из последнего сегмента URL.
	// Пустой/битый URL — ErrInvalidArgument, сбой — ErrStorage.
	DeleteImage(ctx context.Context, ownerID, publicURL string) error
	// DeleteOwnerImages удаляет все изображения владельца.
	DeleteOwnerImages(ctx context.Context, ownerID string) error
}
