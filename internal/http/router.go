package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-car-collection/internal/config"
	"github.com/pribylovaa/go-car-collection/internal/http/cookies"
	"github.com/pribylovaa/go-car-collection/internal/http/handlers"
	"github.com/pribylovaa/go-car-collection/internal/http/middleware"
)

// Service — всё, что роутеру нужно от бизнес-слоя: операции хендлеров и разрешение сессии.
type Service interface {
	handlers.Service
	middleware.SessionResolver
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/v1"; если пустой — роуты регистрируются на корне.

	CORSOrigins []string
	Cookies     config.CookieConfig
	Images      config.ImagesConfig

	// Metrics — nil отключает сбор HTTP-метрик.
	Metrics *middleware.Metrics
	// LocalImages — раздача изображений из памяти по /images/*; nil при работе через S3.
	LocalImages handlers.ImageOpener
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в логгер запроса
		middleware.Logging(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	jar := cookies.New(opts.Cookies)
	h := handlers.New(svc, jar, opts.Images, opts.LocalImages)
	session := middleware.Session(svc, jar)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, session, opts.LocalImages != nil)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, session, opts.LocalImages != nil)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, session middleware.Middleware, localImages bool) {
	r.Get("/ping", h.Ping)

	// auth
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	if localImages {
		r.Get("/images/*", h.ServeImage)
	}

	// всё ниже требует сессию.
	r.Group(func(r chi.Router) {
		r.Use(session)

		r.Get("/auth/logout", h.Logout)
		r.Get("/verify", h.Verify)

		r.Route("/api/cars", func(r chi.Router) {
			r.Post("/", h.CreateCar)
			r.Get("/", h.ListCars)
			r.Get("/{id}", h.GetCar)
			r.Put("/{id}", h.UpdateCar)
			r.Delete("/{id}", h.DeleteCar)
		})
	})
}
