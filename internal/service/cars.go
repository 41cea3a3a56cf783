package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/pkg/log"
	"github.com/pribylovaa/go-car-collection/internal/pkg/redact"
	"golang.org/x/sync/errgroup"
)

// cleanupTimeout — дедлайн на удаление загруженных объектов после неудачи запроса.
const cleanupTimeout = 10 * time.Second

// CreateCar создаёт запись владельца с 1..10 изображениями.
func (s *Service) CreateCar(ctx context.Context, ownerID string, in models.CarInput) (*models.Car, error) {
	const op = "service.cars.CreateCar"

	car, err := s.saveCar(ctx, ownerID, "", in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return car, nil
}

// UpdateCar частично обновляет запись владельца: удаляет перечисленные изображения,
// догружает новые, заменяет переданные поля.
func (s *Service) UpdateCar(ctx context.Context, ownerID, id string, in models.CarInput) (*models.Car, error) {
	const op = "service.cars.UpdateCar"

	car, err := s.saveCar(ctx, ownerID, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return car, nil
}

// GetCar возвращает запись владельца.
func (s *Service) GetCar(ctx context.Context, ownerID, id string) (*models.Car, error) {
	const op = "service.cars.GetCar"

	car, err := s.storage.CarByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	return car, nil
}

// ListCars возвращает записи владельца (новые первыми), опционально с поиском.
func (s *Service) ListCars(ctx context.Context, ownerID, search string) ([]models.Car, error) {
	const op = "service.cars.ListCars"

	cars, err := s.storage.ListCars(ctx, ownerID, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	return cars, nil
}

// DeleteCar удаляет все изображения записи, затем саму запись.
// Сбой удаления любого изображения прерывает операцию до удаления записи.
func (s *Service) DeleteCar(ctx context.Context, ownerID, id string) error {
	const op = "service.cars.DeleteCar"

	lg := log.From(ctx)

	car, err := s.storage.CarByID(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	if err := s.deleteImages(ctx, ownerID, car.ImageURLs); err != nil {
		lg.Error("car_images_delete_failed",
			slog.String("op", op),
			slog.String("car_id", id),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteCar(ctx, ownerID, id); err != nil {
		return fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	lg.Info("car_deleted",
		slog.String("op", op),
		slog.String("car_id", id),
		slog.Int("images", len(car.ImageURLs)),
	)

	return nil
}

// saveCar — общий сценарий создания (id == "") и обновления записи.
//
// Порядок для обновления:
//  1. загрузка записи владельца и проверка итогового числа изображений
//     (текущие − найденные удаляемые + новые <= MaxCarImages);
//  2. проверка каждого нового файла по лимитам хранилища изображений.
//     Шаги 1-2 выполняются до любых мутаций;
//  3. удаление перечисленных изображений (только принадлежащих записи);
//  4. параллельная загрузка новых изображений;
//  5. замена переданных полей, пересчёт image_count, сохранение.
//
// Загруженные в этом запросе объекты удаляются, если загрузка пачки
// или сохранение записи не удались. Удаления не компенсируются.
func (s *Service) saveCar(ctx context.Context, ownerID, id string, in models.CarInput) (*models.Car, error) {
	const op = "service.cars.saveCar"

	lg := log.From(ctx)
	create := id == ""

	var (
		car      models.Car
		toDelete []string
	)

	if create {
		if err := validateCreate(in); err != nil {
			return nil, err
		}

		car = models.Car{OwnerID: ownerID, Tags: []string{}}
	} else {
		cur, err := s.storage.CarByID(ctx, ownerID, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
		}

		car = *cur
		toDelete = matchDeletions(car.ImageURLs, in.DeletedImages)

		if total := len(car.ImageURLs) - len(toDelete) + len(in.Images); total > models.MaxCarImages {
			return nil, invalidArg("maximum %d images allowed, got %d", models.MaxCarImages, total)
		}
	}

	for _, img := range in.Images {
		if err := s.images.CheckImage(img); err != nil {
			return nil, imageErr(img.Name, err)
		}
	}

	if len(toDelete) > 0 {
		if err := s.deleteImages(ctx, ownerID, toDelete); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		car.ImageURLs = without(car.ImageURLs, toDelete)
	}

	uploaded, err := s.uploadImages(ctx, ownerID, in.Images)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	car.ImageURLs = append(car.ImageURLs, uploaded...)
	car.ImageCount = len(car.ImageURLs)

	if in.Title != nil {
		car.Title = strings.TrimSpace(*in.Title)
	}

	if in.Description != nil {
		car.Description = strings.TrimSpace(*in.Description)
	}

	if in.Tags != nil {
		car.Tags = normalizeTags(in.Tags)
	}

	var saved *models.Car
	if create {
		saved, err = s.storage.CreateCar(ctx, car)
	} else {
		saved, err = s.storage.UpdateCar(ctx, car)
	}

	if err != nil {
		s.discardImages(ctx, ownerID, uploaded)
		return nil, fmt.Errorf("%s: %w", op, fromStorage(err))
	}

	lg.Info("car_saved",
		slog.String("op", op),
		slog.String("car_id", saved.ID),
		slog.Bool("created", create),
		slog.Int("uploaded", len(uploaded)),
		slog.Int("deleted", len(toDelete)),
	)

	return saved, nil
}

func validateCreate(in models.CarInput) error {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return invalidArg("title is required")
	}

	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		return invalidArg("description is required")
	}

	switch n := len(in.Images); {
	case n == 0:
		return invalidArg("upload at least one image")
	case n > models.MaxCarImages:
		return invalidArg("maximum %d images allowed", models.MaxCarImages)
	}

	return nil
}

// uploadImages загружает файлы параллельно, сохраняя порядок URL.
// Первая ошибка отменяет остальные загрузки; уже загруженные объекты удаляются.
func (s *Service) uploadImages(ctx context.Context, ownerID string, images []models.Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	urls := make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			url, err := s.images.UploadImage(gctx, ownerID, img)
			if err != nil {
				return imageErr(img.Name, err)
			}

			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		done := make([]string, 0, len(urls))
		for _, u := range urls {
			if u != "" {
				done = append(done, u)
			}
		}
		s.discardImages(ctx, ownerID, done)

		return nil, err
	}

	return urls, nil
}

// deleteImages удаляет объекты параллельно; любая ошибка — ErrStorage.
func (s *Service) deleteImages(ctx context.Context, ownerID string, urls []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		g.Go(func() error {
			return s.images.DeleteImage(gctx, ownerID, u)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return nil
}

// discardImages — best-effort удаление объектов, загруженных неудавшимся запросом.
// Работает и после отмены запроса: контекст отвязан от отмены родителя.
func (s *Service) discardImages(ctx context.Context, ownerID string, urls []string) {
	const op = "service.cars.discardImages"

	if len(urls) == 0 {
		return
	}

	lg := log.From(ctx)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, u := range urls {
		if err := s.images.DeleteImage(cctx, ownerID, u); err != nil {
			lg.Warn("image_cleanup_failed",
				slog.String("op", op),
				slog.String("image", redact.ImageURL(u)),
				slog.String("err", err.Error()),
			)
		}
	}
}

// imageErr — отказ хранилища по лимитам становится ошибкой клиента, прочее — ErrStorage.
func imageErr(name string, err error) error {
	mapped := fromStorage(err)
	if errors.Is(mapped, ErrInvalidArgument) {
		return &ArgumentError{Msg: fmt.Sprintf("image %q rejected: unsupported type or size", name)}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// matchDeletions оставляет только URL, которые есть у записи, без дублей.
func matchDeletions(current, requested []string) []string {
	have := make(map[string]struct{}, len(current))
	for _, u := range current {
		have[u] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	for _, u := range requested {
		u = strings.TrimSpace(u)
		if _, ok := have[u]; ok {
			out = append(out, u)
			delete(have, u)
		}
	}

	return out
}

func without(urls, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, u := range remove {
		drop[u] = struct{}{}
	}

	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := drop[u]; !ok {
			out = append(out, u)
		}
	}

	return out
}

// normalizeTags обрезает пробелы и отбрасывает пустые теги.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}

	return out
}
