package minio

import (
	"context"
	"fmt"

	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

// CheckImage проверяет файл по лимитам бакета.
func (s *ImageStorage) CheckImage(img models.Image) error {
	return s.limits.CheckImage(img)
}

// UploadImage валидирует файл по лимитам, кладёт его под ключ
// "users/<ownerID>/cars/<uuid>.<ext>" с исходным Content-Type и
// возвращает публичный URL объекта.
func (s *ImageStorage) UploadImage(ctx context.Context, ownerID string, img models.Image) (string, error) {
	const op = "storage/minio/UploadImage"

	if err := s.limits.CheckImage(img); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := storage.NewImageKey(ownerID, img)

	_, err := s.client.PutObject(ctx, s.bucket, key, img.Data, img.Size, mclient.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, storage.ErrStorage, err)
	}

	return storage.PublicImageURL(s.baseURL, key), nil
}

// DeleteImage удаляет объект по публичному URL.
// RemoveObject в S3 идемпотентен: отсутствующий объект не считается ошибкой.
func (s *ImageStorage) DeleteImage(ctx context.Context, ownerID, publicURL string) error {
	const op = "storage/minio/DeleteImage"

	key, err := storage.ImageKeyFromURL(ownerID, publicURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorage, err)
	}

	return nil
}

// DeleteOwnerImages удаляет все объекты под префиксом владельца.
func (s *ImageStorage) DeleteOwnerImages(ctx context.Context, ownerID string) error {
	const op = "storage/minio/DeleteOwnerImages"

	var objects []mclient.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, mclient.ListObjectsOptions{
		Prefix:    storage.OwnerImagesPrefix(ownerID),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("%s: list: %w: %w", op, storage.ErrStorage, obj.Err)
		}
		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		return nil
	}

	objectsCh := make(chan mclient.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, obj := range objects {
			select {
			case objectsCh <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, mclient.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: remove %q: %w: %w", op, rErr.ObjectName, storage.ErrStorage, rErr.Err)
		}
	}

	return firstErr
}
