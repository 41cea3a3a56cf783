package models

import (
	"io"
	"time"
)

// MaxCarImages — верхняя граница числа изображений у одной записи.
const MaxCarImages = 10

// Car — запись коллекции.
// Инвариант: ImageCount == len(ImageURLs) <= MaxCarImages после любой мутации.
// OwnerID — ID пользователя; все операции над записью ограничены владельцем.
type Car struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	ImageURLs   []string
	ImageCount  int
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image — загружаемый файл изображения.
// Name — исходное имя файла (из него берётся расширение), Size — размер в байтах.
type Image struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// CarInput — входные данные создания/обновления записи.
// nil-указатели и nil-срез Tags означают «поле не передано».
// При создании Title и Description обязательны.
type CarInput struct {
	Title         *string
	Description   *string
	Tags          []string
	Images        []Image
	DeletedImages []string
}
