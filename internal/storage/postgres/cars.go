package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

const carColumns = `id, owner_id, title, description, tags, image_urls, image_count, created_at, updated_at`

// CreateCar сохраняет запись; владелец должен существовать (FK).
func (s *Storage) CreateCar(ctx context.Context, car models.Car) (*models.Car, error) {
	const op = "storage.postgres.CreateCar"

	owner, err := uuid.Parse(car.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%s: owner: %w", op, storage.ErrNotFound)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	query := `
		INSERT INTO cars(id, owner_id, title, description, tags, image_urls, image_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + carColumns

	row := s.db.QueryRow(ctx, query,
		uuid.New(), owner, car.Title, car.Description,
		nonNil(car.Tags), nonNil(car.ImageURLs), len(car.ImageURLs), now,
	)

	out, err := scanCar(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, fmt.Errorf("%s: owner: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) CarByID(ctx context.Context, ownerID, id string) (*models.Car, error) {
	const op = "storage.postgres.CarByID"

	carID, owner, ok := parseIDs(id, ownerID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1 AND owner_id = $2`

	out, err := scanCar(s.db.QueryRow(ctx, query, carID, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ListCars — записи владельца, новые первыми.
// Поиск: ILIKE по экранированному шаблону в title, description и элементах tags.
func (s *Storage) ListCars(ctx context.Context, ownerID, search string) ([]models.Car, error) {
	const op = "storage.postgres.ListCars"

	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return []models.Car{}, nil
	}

	query := `SELECT ` + carColumns + ` FROM cars WHERE owner_id = $1`
	args := []any{owner}

	if q := strings.TrimSpace(search); q != "" {
		query += ` AND (title ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\'
			OR EXISTS (SELECT 1 FROM unnest(tags) AS t(tag) WHERE t.tag ILIKE $2 ESCAPE '\'))`
		args = append(args, "%"+escapeLike(q)+"%")
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Car, 0)
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) UpdateCar(ctx context.Context, car models.Car) (*models.Car, error) {
	const op = "storage.postgres.UpdateCar"

	carID, owner, ok := parseIDs(car.ID, car.OwnerID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		UPDATE cars
		SET title = $3, description = $4, tags = $5, image_urls = $6, image_count = $7, updated_at = $8
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + carColumns

	row := s.db.QueryRow(ctx, query,
		carID, owner, car.Title, car.Description,
		nonNil(car.Tags), nonNil(car.ImageURLs), len(car.ImageURLs),
		time.Now().UTC().Truncate(time.Microsecond),
	)

	out, err := scanCar(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) DeleteCar(ctx context.Context, ownerID, id string) error {
	const op = "storage.postgres.DeleteCar"

	carID, owner, ok := parseIDs(id, ownerID)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM cars WHERE id = $1 AND owner_id = $2`, carID, owner)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func scanCar(row pgx.Row) (*models.Car, error) {
	var (
		c         models.Car
		id, owner uuid.UUID
	)

	err := row.Scan(&id, &owner, &c.Title, &c.Description, &c.Tags, &c.ImageURLs, &c.ImageCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ID = id.String()
	c.OwnerID = owner.String()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	return &c, nil
}

// parseIDs — невалидный UUID неотличим от отсутствующей записи.
func parseIDs(id, ownerID string) (uuid.UUID, uuid.UUID, bool) {
	carID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}

	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}

	return carID, owner, true
}

// escapeLike экранирует метасимволы LIKE, чтобы строка поиска сравнивалась буквально.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
