// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя (или валидации хендлера),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу: sentinel-ошибки пакета service.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-car-collection/internal/pkg/validate"
	"github.com/pribylovaa/go-car-collection/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
// Fields — ошибки по полям, только для validation_failed.
type APIError struct {
	Code      string                `json:"code"`
	Message   string                `json:"message"`
	RequestID string                `json:"request_id,omitempty"`
	Fields    []validate.FieldError `json:"fields,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Порядок проверок:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - отмена/дедлайн контекста — 499/504 (раньше доменных ошибок, т.к.
//     сервис оборачивает их в ErrStorage/ErrInternal);
//   - *validate.Error — 400/validation_failed со списком полей;
//   - *service.ArgumentError — 400/invalid_argument с его сообщением;
//   - sentinel-ошибки service через baseFromService.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error: APIError{
				Code:    "internal",
				Message: "internal error",
			},
		}
	}

	var (
		verr *validate.Error
		aerr *service.ArgumentError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{
			Error: APIError{Code: "canceled", Message: "canceled"},
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: APIError{Code: "deadline_exceeded", Message: "deadline exceeded"},
		}
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{
				Code:    "validation_failed",
				Message: "validation failed",
				Fields:  verr.Fields,
			},
		}
	case errors.As(err, &aerr):
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{Code: "invalid_argument", Message: aerr.Msg},
		}
	}

	status, code, msg := baseFromService(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров и мидлваров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromService — маппинг sentinel-ошибок service -> HTTP/FE-код/сообщение:
//   - InvalidEmail/WeakPassword/InvalidArgument -> 400 invalid_argument
//   - EmailTaken -> 400 already_exists
//   - InvalidCredentials -> 401 unauthenticated
//   - Unauthorized/InvalidToken -> 401 unauthorized
//   - Forbidden -> 403
//   - NotFound -> 404
//   - Storage/Internal/прочее -> 500 internal
func baseFromService(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_argument", service.ErrInvalidEmail.Error()
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "invalid_argument", service.ErrWeakPassword.Error()
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "already_exists", service.ErrEmailTaken.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthenticated", service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error()
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden", service.ErrForbidden.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrStorage):
		return http.StatusInternalServerError, "internal", service.ErrStorage.Error()
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
