// Package cookies выставляет и очищает http-only cookie с токенами сессии.
package cookies

import (
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/go-car-collection/internal/config"
)

// Имена cookie, которые читает и пишет сервис.
const (
	AccessToken  = "accessToken"
	RefreshToken = "refreshToken"
)

// Manager собирает cookie с атрибутами из конфигурации.
type Manager struct {
	secure   bool
	sameSite http.SameSite
	domain   string
	path     string
	now      func() time.Time
}

// New создаёт Manager. Неизвестный same_site трактуется как Lax.
func New(cfg config.CookieConfig) *Manager {
	path := cfg.Path
	if path == "" {
		path = "/"
	}

	return &Manager{
		secure:   cfg.Secure,
		sameSite: parseSameSite(cfg.SameSite),
		domain:   cfg.Domain,
		path:     path,
		now:      time.Now,
	}
}

// SetAccess выставляет cookie access-токена со сроком до expiresAt.
func (m *Manager) SetAccess(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, m.cookie(AccessToken, token, expiresAt))
}

// SetRefresh выставляет cookie refresh-токена со сроком до expiresAt.
func (m *Manager) SetRefresh(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, m.cookie(RefreshToken, token, expiresAt))
}

// Clear удаляет обе cookie (пустое значение, MaxAge -1).
func (m *Manager) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessToken, RefreshToken} {
		c := m.cookie(name, "", time.Time{})
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// Tokens читает значения обеих cookie из запроса; отсутствующие — пустые строки.
func Tokens(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessToken); err == nil {
		access = c.Value
	}

	if c, err := r.Cookie(RefreshToken); err == nil {
		refresh = c.Value
	}

	return access, refresh
}

func (m *Manager) cookie(name, value string, expiresAt time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	}

	if !expiresAt.IsZero() {
		maxAge := int(expiresAt.Sub(m.now()).Round(time.Second) / time.Second)
		if maxAge <= 0 {
			maxAge = -1
		}
		c.MaxAge = maxAge
		c.Expires = expiresAt.UTC()
	}

	return c
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
