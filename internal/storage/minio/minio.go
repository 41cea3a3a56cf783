// minio предоставляет реализацию storage.ImageStorage на базе MinIO/S3.
// minio.go — конструктор клиента MinIO: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// images.go — загрузка и удаление изображений записей.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/storage"
)

// ImageStorage — адаптер MinIO для изображений записей.
type ImageStorage struct {
	client  *mclient.Client
	bucket  string
	baseURL string
	limits  storage.ImageLimits
}

// New создаёт и инициализирует клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg *config.Config) (*ImageStorage, error) {
	const op = "storage/minio/New"

	if cfg == nil {
		return nil, fmt.Errorf("%s: nil config", op)
	}

	endpoint := cfg.S3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.RootUser, cfg.S3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.S3.Bucket)
	}

	return &ImageStorage{
		client:  client,
		bucket:  cfg.S3.Bucket,
		baseURL: publicBase(cfg.S3, secure, endpoint),
		limits: storage.ImageLimits{
			MaxSizeBytes:        cfg.Images.MaxSizeBytes,
			AllowedContentTypes: cfg.Images.AllowedContentTypes,
		},
	}, nil
}

// publicBase — PublicBaseURL, если задан, иначе <scheme>://<host>/<bucket>.
func publicBase(s3 config.S3Config, secure bool, host string) string {
	if s3.PublicBaseURL != "" {
		return strings.TrimRight(s3.PublicBaseURL, "/")
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}

	return scheme + "://" + host + "/" + s3.Bucket
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.ImageStorage = (*ImageStorage)(nil)
