package models

import "time"

// CarResponse — внешнее представление записи (camelCase — контракт фронтенда).
type CarResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	ImageURLs   []string  `json:"imageUrls"`
	ImageCount  int       `json:"imageCount"`
	User        string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func CarToResponse(c *Car) CarResponse {
	if c == nil {
		return CarResponse{}
	}

	// пустые срезы вместо null в JSON.
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}

	urls := c.ImageURLs
	if urls == nil {
		urls = []string{}
	}

	return CarResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Tags:        tags,
		ImageURLs:   urls,
		ImageCount:  c.ImageCount,
		User:        c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func CarsToResponse(cars []Car) []CarResponse {
	out := make([]CarResponse, 0, len(cars))
	for i := range cars {
		out = append(out, CarToResponse(&cars[i]))
	}

	return out
}
