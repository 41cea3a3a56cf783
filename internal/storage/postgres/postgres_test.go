package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты для пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (postgres:16-alpine);
// - схема применяется в New (ensureSchema), повторный New не падает;
// - пользователи: вставка, уникальность email, поиск по email/ID, битый UUID;
// - записи: CRUD со скоупом владельца, FK на владельца, сортировка и ILIKE-поиск
//   с экранированием метасимволов.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	// схема идемпотентна.
	again, err := New(ctx, dsn)
	require.NoError(t, err)
	_ = again.Close(ctx)

	return st
}

func mustUser(t *testing.T, st *Storage, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "N", Email: email, PasswordHash: "hash"}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	require.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	require.Equal(t, "plain", escapeLike("plain"))
}

func TestIntegration_Users(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := mustUser(t, st, "ann@example.com")
	_, err := uuid.Parse(u.ID)
	require.NoError(t, err)

	require.ErrorIs(t, st.SaveUser(ctx, &models.User{Name: "B", Email: "ann@example.com", PasswordHash: "h"}), storage.ErrAlreadyExists)

	byEmail, err := st.UserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.WithinDuration(t, u.CreatedAt, byEmail.CreatedAt, time.Millisecond)

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", byID.Email)

	_, err = st.UserByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.UserByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_Cars_CRUD_OwnerScoped(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	owner := mustUser(t, st, "owner@example.com")
	other := mustUser(t, st, "other@example.com")

	_, err := st.CreateCar(ctx, models.Car{Title: "x", OwnerID: uuid.NewString()})
	require.ErrorIs(t, err, storage.ErrNotFound)

	c, err := st.CreateCar(ctx, models.Car{
		Title: "Supra", Description: "red", OwnerID: owner.ID,
		ImageURLs: []string{"http://x/a.png", "http://x/b.png"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.ImageCount)
	require.Empty(t, c.Tags)

	_, err = st.CarByID(ctx, other.ID, c.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.CarByID(ctx, owner.ID, "bad")
	require.ErrorIs(t, err, storage.ErrNotFound)

	c.Tags = []string{"jdm"}
	c.ImageURLs = c.ImageURLs[:1]
	upd, err := st.UpdateCar(ctx, *c)
	require.NoError(t, err)
	require.Equal(t, []string{"jdm"}, upd.Tags)
	require.Equal(t, 1, upd.ImageCount)

	foreign := *c
	foreign.OwnerID = other.ID
	_, err = st.UpdateCar(ctx, foreign)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, st.DeleteCar(ctx, other.ID, c.ID), storage.ErrNotFound)
	require.NoError(t, st.DeleteCar(ctx, owner.ID, c.ID))
	require.ErrorIs(t, st.DeleteCar(ctx, owner.ID, c.ID), storage.ErrNotFound)
}

func TestIntegration_ListCars_OrderAndSearch(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	owner := mustUser(t, st, "list@example.com")

	mk := func(title, desc string, tags ...string) string {
		c, err := st.CreateCar(ctx, models.Car{Title: title, Description: desc, Tags: tags, OwnerID: owner.ID})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		return c.ID
	}

	a := mk("Toyota Supra", "red coupe", "jdm")
	b := mk("BMW M3", "100% original", "german")
	c := mk("Nissan GT-R", "silver", "JDM", "awd")

	all, err := st.ListCars(ctx, owner.ID, "")
	require.NoError(t, err)
	require.Equal(t, []string{c, b, a}, ids(all))

	jdm, err := st.ListCars(ctx, owner.ID, "jdm")
	require.NoError(t, err)
	require.Equal(t, []string{c, a}, ids(jdm))

	pct, err := st.ListCars(ctx, owner.ID, "100%")
	require.NoError(t, err)
	require.Equal(t, []string{b}, ids(pct))

	// "%" сам по себе не должен совпадать со всем подряд.
	onlyPct, err := st.ListCars(ctx, owner.ID, "%")
	require.NoError(t, err)
	require.Equal(t, []string{b}, ids(onlyPct))

	foreign, err := st.ListCars(ctx, uuid.NewString(), "")
	require.NoError(t, err)
	require.Empty(t, foreign)
}

func ids(cars []models.Car) []string {
	out := make([]string, 0, len(cars))
	for _, c := range cars {
		out = append(out, c.ID)
	}
	return out
}
