package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Интеграционные тесты MongoDB-хранилища:
//   - пользователи: вставка, уникальность email, поиск по email/ID, битый ID;
//   - записи: CRUD со скоупом владельца, пересчёт image_count;
//   - ListCars: сортировка (новые первыми), поиск по title/description/tags,
//     экранирование спецсимволов регулярных выражений;
//   - наличие индексов.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/mongo -v -count=1

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, каждый тест
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	baseURL := strings.TrimRight(os.Getenv("DATABASE_URL"), "/")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}

	dbName := "cars_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	return &config.Config{DB: config.DBConfig{Driver: config.DriverMongo, URL: baseURL + "/" + dbName}}
}

// mustNewMongo подключается к тестовой БД и регистрирует её удаление.
func mustNewMongo(t *testing.T) *Mongo {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	cfg := newTestConfig(t)
	m, err := New(ctx, cfg)
	require.NoError(t, err, "DATABASE_URL=%s", cfg.DB.URL)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "cars", databaseFromURI("mongodb://localhost:27017/cars"))
	require.Equal(t, "cars", databaseFromURI("mongodb://localhost:27017/cars?retryWrites=true"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("::bad::"))
}

func TestNew_NilOrEmptyConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	require.Error(t, err)

	_, err = New(context.Background(), &config.Config{})
	require.Error(t, err)
}

func TestUsers(t *testing.T) {
	m := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	u := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "hash"}
	require.NoError(t, m.SaveUser(ctx, u))
	require.True(t, primitive.IsValidObjectID(u.ID))
	require.Equal(t, u.CreatedAt, u.CreatedAt.Truncate(time.Millisecond))

	require.ErrorIs(t, m.SaveUser(ctx, &models.User{Name: "B", Email: "ann@example.com"}), storage.ErrAlreadyExists)

	byEmail, err := m.UserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := m.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ann", byID.Name)

	_, err = m.UserByID(ctx, "not-an-object-id")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.UserByID(ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCars_CRUD_OwnerScoped(t *testing.T) {
	m := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	c, err := m.CreateCar(ctx, models.Car{
		Title: "Supra", Description: "red", OwnerID: "u1",
		ImageURLs: []string{"http://x/a.png", "http://x/b.png"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.ImageCount)
	require.NotNil(t, c.Tags)

	got, err := m.CarByID(ctx, "u1", c.ID)
	require.NoError(t, err)
	require.Equal(t, c.Title, got.Title)
	require.Equal(t, c.ImageURLs, got.ImageURLs)

	_, err = m.CarByID(ctx, "u2", c.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = m.CarByID(ctx, "u1", "bad-id")
	require.ErrorIs(t, err, storage.ErrNotFound)

	got.Title = "Supra MK4"
	got.Tags = []string{"jdm"}
	got.ImageURLs = got.ImageURLs[:1]
	upd, err := m.UpdateCar(ctx, *got)
	require.NoError(t, err)
	require.Equal(t, "Supra MK4", upd.Title)
	require.Equal(t, []string{"jdm"}, upd.Tags)
	require.Equal(t, 1, upd.ImageCount)
	require.False(t, upd.UpdatedAt.Before(upd.CreatedAt))

	foreign := *got
	foreign.OwnerID = "u2"
	_, err = m.UpdateCar(ctx, foreign)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, m.DeleteCar(ctx, "u2", c.ID), storage.ErrNotFound)
	require.NoError(t, m.DeleteCar(ctx, "u1", c.ID))
	require.ErrorIs(t, m.DeleteCar(ctx, "u1", c.ID), storage.ErrNotFound)
}

func TestListCars_OrderAndSearch(t *testing.T) {
	m := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	mk := func(owner, title, desc string, tags ...string) string {
		c, err := m.CreateCar(ctx, models.Car{Title: title, Description: desc, Tags: tags, OwnerID: owner})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		return c.ID
	}

	a := mk("u1", "Toyota Supra", "red coupe", "jdm")
	b := mk("u1", "BMW M3 (E46)", "blue sedan", "german")
	c := mk("u1", "Nissan GT-R", "silver", "JDM", "awd")
	_ = mk("u2", "Toyota Supra", "not mine", "jdm")

	all, err := m.ListCars(ctx, "u1", "")
	require.NoError(t, err)
	require.Equal(t, []string{c, b, a}, carIDs(all))

	jdm, err := m.ListCars(ctx, "u1", "jdm")
	require.NoError(t, err)
	require.Equal(t, []string{c, a}, carIDs(jdm))

	sedan, err := m.ListCars(ctx, "u1", "SEDAN")
	require.NoError(t, err)
	require.Equal(t, []string{b}, carIDs(sedan))

	// скобки ищутся буквально, а не как группа регулярного выражения.
	paren, err := m.ListCars(ctx, "u1", "(e46)")
	require.NoError(t, err)
	require.Equal(t, []string{b}, carIDs(paren))

	none, err := m.ListCars(ctx, "u1", ".*")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestEnsureIndexes_Created(t *testing.T) {
	m := mustNewMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	have := map[string]bool{}
	for _, coll := range []string{usersCollection, carsCollection} {
		got, err := indexNames(ctx, m, coll)
		require.NoError(t, err)
		for _, n := range got {
			have[n] = true
		}
	}

	require.True(t, have["email_unique"], "indexes: %v", have)
	require.True(t, have["user_created_desc"], "indexes: %v", have)
}

func indexNames(ctx context.Context, m *Mongo, coll string) ([]string, error) {
	cur, err := m.db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var spec struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&spec); err != nil {
			return nil, err
		}
		out = append(out, spec.Name)
	}

	return out, cur.Err()
}

func carIDs(cars []models.Car) []string {
	out := make([]string, 0, len(cars))
	for _, c := range cars {
		out = append(out, c.ID)
	}
	return out
}
