// Package memory — реализации storage.Storage и storage.ImageStorage в памяти процесса.
// Используются для локального запуска (db.driver=memory, s3.enabled=false) и в тестах.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

// Storage хранит пользователей и записи в map под RWMutex.
type Storage struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	cars    map[string]models.Car
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		cars:    make(map[string]models.Car),
	}
}

func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return storage.ErrAlreadyExists
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID

	return nil
}

func (s *Storage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}

	u := s.users[id]
	return &u, nil
}

func (s *Storage) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &u, nil
}

func (s *Storage) CreateCar(_ context.Context, car models.Car) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	car.ID = uuid.NewString()
	car.ImageCount = len(car.ImageURLs)
	car.CreatedAt = now
	car.UpdatedAt = now

	car = cloneCar(car)
	s.cars[car.ID] = car

	out := cloneCar(car)
	return &out, nil
}

func (s *Storage) CarByID(_ context.Context, ownerID, id string) (*models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cars[id]
	if !ok || c.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}

	out := cloneCar(c)
	return &out, nil
}

func (s *Storage) ListCars(_ context.Context, ownerID, search string) ([]models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Car, 0)
	for _, c := range s.cars {
		if c.OwnerID != ownerID {
			continue
		}

		if needle != "" && !matches(c, needle) {
			continue
		}

		out = append(out, cloneCar(c))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (s *Storage) UpdateCar(_ context.Context, car models.Car) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.cars[car.ID]
	if !ok || cur.OwnerID != car.OwnerID {
		return nil, storage.ErrNotFound
	}

	cur.Title = car.Title
	cur.Description = car.Description
	cur.Tags = car.Tags
	cur.ImageURLs = car.ImageURLs
	cur.ImageCount = len(car.ImageURLs)
	cur.UpdatedAt = time.Now().UTC()

	cur = cloneCar(cur)
	s.cars[cur.ID] = cur

	out := cloneCar(cur)
	return &out, nil
}

func (s *Storage) DeleteCar(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cars[id]
	if !ok || c.OwnerID != ownerID {
		return storage.ErrNotFound
	}

	delete(s.cars, id)
	return nil
}

func (s *Storage) Close(context.Context) error { return nil }

// matches — регистронезависимая подстрока в title, description или любом теге.
// needle уже приведён к нижнему регистру.
func matches(c models.Car, needle string) bool {
	if strings.Contains(strings.ToLower(c.Title), needle) ||
		strings.Contains(strings.ToLower(c.Description), needle) {
		return true
	}

	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}

	return false
}

// cloneCar копирует срезы, чтобы вызывающий не мог изменить состояние хранилища.
func cloneCar(c models.Car) models.Car {
	c.Tags = append([]string(nil), c.Tags...)
	c.ImageURLs = append([]string(nil), c.ImageURLs...)
	return c
}

var _ storage.Storage = (*Storage)(nil)
