// Package models содержит доменные сущности сервиса коллекции автомобилей
// и REST-модели публичного API.
package models

import "time"

// User — владелец коллекции.
// Email хранится в нормализованном виде (trim + lower) и уникален на уровне хранилища.
// PasswordHash — bcrypt-хэш; наружу никогда не отдаётся.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
