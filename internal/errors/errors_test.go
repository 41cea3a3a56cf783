package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/go-car-collection/internal/pkg/validate"
	"github.com/pribylovaa/go-car-collection/internal/service"
	"github.com/stretchr/testify/require"
)

func wrap(err error) error {
	return fmt.Errorf("service.cars.CreateCar: %w", err)
}

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"invalid_email", wrap(service.ErrInvalidEmail), http.StatusBadRequest, "invalid_argument", "invalid email format"},
		{"weak_password", wrap(service.ErrWeakPassword), http.StatusBadRequest, "invalid_argument", "password must be at least 8 characters"},
		{"invalid_argument", wrap(service.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument", "invalid argument"},
		{"email_taken", wrap(service.ErrEmailTaken), http.StatusBadRequest, "already_exists", "user already exists"},
		{"credentials", wrap(service.ErrInvalidCredentials), http.StatusUnauthorized, "unauthenticated", "invalid email or password"},
		{"unauthorized", wrap(service.ErrUnauthorized), http.StatusUnauthorized, "unauthorized", "unauthorized please login"},
		{"invalid_token", wrap(service.ErrInvalidToken), http.StatusUnauthorized, "unauthorized", "unauthorized please login"},
		{"forbidden", wrap(service.ErrForbidden), http.StatusForbidden, "forbidden", "invalid access token"},
		{"not_found", wrap(service.ErrNotFound), http.StatusNotFound, "not_found", "not found"},
		{"storage", wrap(service.ErrStorage), http.StatusInternalServerError, "internal", "image storage failure"},
		{"internal", wrap(service.ErrInternal), http.StatusInternalServerError, "internal", "internal error"},
		{"unknown", fmt.Errorf("mongo: connection reset"), http.StatusInternalServerError, "internal", "internal error"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled", "canceled"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.Equal(t, tc.wantMsg, resp.Error.Message)
			require.Empty(t, resp.Error.Fields)
		})
	}
}

func TestToHTTP_ContextBeatsDomainError(t *testing.T) {
	// сервис оборачивает отмену в ErrStorage: статус всё равно 504.
	err := fmt.Errorf("%w: %w", service.ErrStorage, context.DeadlineExceeded)

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusGatewayTimeout, gotStatus)
	require.Equal(t, "deadline_exceeded", resp.Error.Code)
}

func TestToHTTP_ArgumentError_ExposesMessage(t *testing.T) {
	err := wrap(&service.ArgumentError{Msg: "maximum 10 images allowed"})

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusBadRequest, gotStatus)
	require.Equal(t, "invalid_argument", resp.Error.Code)
	require.Equal(t, "maximum 10 images allowed", resp.Error.Message)
}

func TestToHTTP_ValidationError_Fields(t *testing.T) {
	err := &validate.Error{Fields: []validate.FieldError{
		{Field: "email", Message: "must be a valid email"},
	}}

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusBadRequest, gotStatus)
	require.Equal(t, "validation_failed", resp.Error.Code)
	require.Equal(t, err.Fields, resp.Error.Fields)
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_Envelope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/cars/1", nil)
	r.Header.Set("X-Request-Id", "rid-42")
	w := httptest.NewRecorder()

	WriteError(w, r, wrap(service.ErrNotFound))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "not_found", body["error"]["code"])
	require.Equal(t, "rid-42", body["error"]["request_id"])
	_, hasFields := body["error"]["fields"]
	require.False(t, hasFields)
}
