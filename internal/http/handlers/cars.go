package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/go-car-collection/internal/errors"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/service"
)

// Поля multipart-формы записи.
const (
	fieldTitle         = "title"
	fieldDescription   = "description"
	fieldTags          = "tags"
	fieldImages        = "images"
	fieldDeletedImages = "deletedImages"
)

// bodySlack — запас на текстовые поля и служебные части multipart сверх файлов.
const bodySlack = 1 << 20

func (h *Handlers) CreateCar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in, cleanup, err := h.parseCarForm(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer cleanup()

	car, err := h.svc.CreateCar(r.Context(), user.ID, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CarToResponse(car))
}

func (h *Handlers) ListCars(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cars, err := h.svc.ListCars(r.Context(), user.ID, r.URL.Query().Get("search"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CarsToResponse(cars))
}

func (h *Handlers) GetCar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	car, err := h.svc.GetCar(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CarToResponse(car))
}

// UpdateCar принимает ту же форму, что и создание; отсутствующие поля не меняются.
func (h *Handlers) UpdateCar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in, cleanup, err := h.parseCarForm(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer cleanup()

	car, err := h.svc.UpdateCar(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CarToResponse(car))
}

func (h *Handlers) DeleteCar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteCar(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "car deleted successfully"})
}

// parseCarForm разбирает multipart (или urlencoded, если файлов нет) форму в CarInput.
//   - title/description: отсутствующее или пустое поле — nil (не передано);
//   - tags/deletedImages: повторяющиеся поля и/или значения через запятую;
//     tags, переданные хотя бы пустым полем, заменяют список целиком;
//   - images: файлы; Content-Type берётся из части формы или определяется по содержимому.
//
// cleanup закрывает файлы и удаляет временные файлы формы; вызывать после работы сервиса.
func (h *Handlers) parseCarForm(w http.ResponseWriter, r *http.Request) (models.CarInput, func(), error) {
	noop := func() {}

	limit := h.images.MaxSizeBytes*int64(models.MaxCarImages+1) + bodySlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	err := r.ParseMultipartForm(h.images.MaxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return models.CarInput{}, noop, &service.ArgumentError{Msg: "request body too large"}
		}
		return models.CarInput{}, noop, &service.ArgumentError{Msg: "invalid form body"}
	}

	in := models.CarInput{
		Title:         optionalField(r, fieldTitle),
		Description:   optionalField(r, fieldDescription),
		DeletedImages: splitList(r.Form[fieldDeletedImages]),
	}

	if tags, ok := r.Form[fieldTags]; ok {
		in.Tags = splitList(tags)
	}

	if r.MultipartForm == nil {
		return in, noop, nil
	}

	files := make([]multipart.File, 0, len(r.MultipartForm.File[fieldImages]))
	cleanup := func() {
		for _, f := range files {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	for _, fh := range r.MultipartForm.File[fieldImages] {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return models.CarInput{}, noop, fmt.Errorf("%w: open form file: %w", service.ErrInternal, err)
		}
		files = append(files, f)

		contentType, err := fileContentType(fh, f)
		if err != nil {
			cleanup()
			return models.CarInput{}, noop, fmt.Errorf("%w: read form file: %w", service.ErrInternal, err)
		}

		in.Images = append(in.Images, models.Image{
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Data:        f,
		})
	}

	return in, cleanup, nil
}

func optionalField(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.Form.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// splitList объединяет повторяющиеся значения и значения через запятую; пустые отбрасываются.
// Результат не nil, даже если значений нет.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// fileContentType — тип из заголовка части; если он пуст или общий, определяем по первым байтам.
func fileContentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(head[:n]), nil
}
