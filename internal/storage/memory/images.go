package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

type object struct {
	ContentType string
	Data        []byte
}

// ImageStorage хранит объекты в памяти; URL строится от baseURL.
type ImageStorage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
	limits  storage.ImageLimits
}

// NewImageStorage создаёт хранилище изображений в памяти.
func NewImageStorage(baseURL string, limits storage.ImageLimits) *ImageStorage {
	return &ImageStorage{
		objects: make(map[string]object),
		baseURL: baseURL,
		limits:  limits,
	}
}

func (s *ImageStorage) CheckImage(img models.Image) error {
	return s.limits.CheckImage(img)
}

func (s *ImageStorage) UploadImage(_ context.Context, ownerID string, img models.Image) (string, error) {
	const op = "storage/memory/UploadImage"

	if err := s.limits.CheckImage(img); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	data, err := io.ReadAll(io.LimitReader(img.Data, img.Size+1))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, storage.ErrStorage, err)
	}

	key := storage.NewImageKey(ownerID, img)

	s.mu.Lock()
	s.objects[key] = object{ContentType: img.ContentType, Data: data}
	s.mu.Unlock()

	return storage.PublicImageURL(s.baseURL, key), nil
}

// DeleteImage идемпотентен, как RemoveObject в S3: отсутствие объекта не ошибка.
func (s *ImageStorage) DeleteImage(_ context.Context, ownerID, publicURL string) error {
	const op = "storage/memory/DeleteImage"

	key, err := storage.ImageKeyFromURL(ownerID, publicURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()

	return nil
}

func (s *ImageStorage) DeleteOwnerImages(_ context.Context, ownerID string) error {
	prefix := storage.OwnerImagesPrefix(ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}

	return nil
}

// Keys возвращает отсортированные ключи объектов владельца.
func (s *ImageStorage) Keys(ownerID string) []string {
	prefix := storage.OwnerImagesPrefix(ownerID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys
}

// Open отдаёт содержимое объекта по ключу; используется для раздачи файлов локально.
func (s *ImageStorage) Open(key string) (io.Reader, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}

	return bytes.NewReader(obj.Data), obj.ContentType, true
}

var _ storage.ImageStorage = (*ImageStorage)(nil)
