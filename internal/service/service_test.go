package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"github.com/pribylovaa/go-car-collection/internal/storage/memory"
	"github.com/pribylovaa/go-car-collection/mocks"
	"github.com/stretchr/testify/require"
)

// Общие хелперы unit-тестов пакета service.

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "car-collection",
	}
}

// clock — управляемое время для проверки истечения токенов.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func withClock(svc *Service) *clock {
	c := &clock{t: time.Now().UTC()}
	svc.now = c.Now
	return c
}

// newServiceWithMock — сервис поверх gomock-хранилищ.
func newServiceWithMock(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockImageStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	img := mocks.NewMockImageStorage(ctrl)
	return New(st, img, testAuthCfg()), st, img
}

// newServiceWithMemory — сервис поверх хранилищ в памяти.
func newServiceWithMemory(t *testing.T) (*Service, *memory.Storage, *memory.ImageStorage) {
	t.Helper()
	st := memory.New()
	img := memory.NewImageStorage("http://img.local", storage.ImageLimits{
		MaxSizeBytes:        1 << 20,
		AllowedContentTypes: []string{"image/png", "image/jpeg"},
	})
	return New(st, img, testAuthCfg()), st, img
}

var errBoom = errors.New("boom")

func requireArgumentMsg(t *testing.T, err error, contains string) {
	t.Helper()
	require.ErrorIs(t, err, ErrInvalidArgument)

	var ae *ArgumentError
	require.True(t, errors.As(err, &ae), "expected *ArgumentError, got %T", err)
	require.Contains(t, ae.Msg, contains)
}
