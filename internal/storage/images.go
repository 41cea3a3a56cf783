package storage

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-car-collection/internal/models"
)

// ImageLimits — ограничения на загружаемые изображения.
type ImageLimits struct {
	MaxSizeBytes        int64
	AllowedContentTypes []string
}

// CheckImage проверяет размер и тип файла по allow-list.
func (l ImageLimits) CheckImage(img models.Image) error {
	if img.Data == nil || img.Size <= 0 {
		return fmt.Errorf("%w: empty image %q", ErrInvalidArgument, img.Name)
	}

	if l.MaxSizeBytes > 0 && img.Size > l.MaxSizeBytes {
		return fmt.Errorf("%w: image %q exceeds %d bytes", ErrInvalidArgument, img.Name, l.MaxSizeBytes)
	}

	if len(l.AllowedContentTypes) > 0 && !isAllowedContentType(l.AllowedContentTypes, img.ContentType) {
		return fmt.Errorf("%w: content type %q is not allowed", ErrInvalidArgument, img.ContentType)
	}

	return nil
}

// OwnerImagesPrefix возвращает префикс всех изображений владельца: "users/<ownerID>/cars/".
func OwnerImagesPrefix(ownerID string) string {
	return path.Join("users", ownerID, "cars") + "/"
}

// NewImageKey генерирует ключ вида "users/<ownerID>/cars/<uuid>.<ext>".
// Расширение берётся из исходного имени файла, при его отсутствии — из типа содержимого.
func NewImageKey(ownerID string, img models.Image) string {
	ext := strings.ToLower(path.Ext(img.Name))
	if ext == "" || ext == "." {
		ext = extByContentType(img.ContentType)
	}

	return OwnerImagesPrefix(ownerID) + uuid.NewString() + ext
}

// ImageKeyFromURL восстанавливает ключ объекта владельца по публичному URL:
// берётся последний сегмент пути (имя файла), префикс строится по ownerID.
// Поэтому чужой URL не может адресовать объект другого владельца.
func ImageKeyFromURL(ownerID, publicURL string) (string, error) {
	if strings.TrimSpace(publicURL) == "" {
		return "", fmt.Errorf("%w: empty image url", ErrInvalidArgument)
	}

	u, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad image url", ErrInvalidArgument)
	}

	name := path.Base(u.Path)
	if u.Path == "" || strings.HasSuffix(u.Path, "/") || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: image url has no file name", ErrInvalidArgument)
	}

	return OwnerImagesPrefix(ownerID) + name, nil
}

// PublicImageURL собирает публичный URL объекта: base + "/" + key.
func PublicImageURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func extByContentType(contentType string) string {
	switch mediaType(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

// isAllowedContentType проверяет, что тип содержимого входит в allow-list.
// Параметры ("; charset=...") и регистр не учитываются.
func isAllowedContentType(allow []string, contentType string) bool {
	mt := mediaType(contentType)
	if mt == "" {
		return false
	}

	for _, a := range allow {
		if mediaType(a) == mt {
			return true
		}
	}

	return false
}

// mediaType возвращает тип без параметров в нижнем регистре; битое значение — "".
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return mt
}
