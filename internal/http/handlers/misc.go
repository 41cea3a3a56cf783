package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/go-car-collection/internal/errors"
	"github.com/pribylovaa/go-car-collection/internal/service"
)

func (h *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// ServeImage отдаёт изображение из локального хранилища по ключу из пути (/images/*).
func (h *Handlers) ServeImage(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	data, contentType, ok := h.files.Open(chi.URLParam(r, "*"))
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, data)
}
