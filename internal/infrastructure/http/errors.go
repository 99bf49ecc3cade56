package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"
	"fxconvert-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

type errorBody struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Type    string         `json:"type,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: msg, Type: "bad_request"})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnsupportedCurrency, domain.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case domain.KindRateUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail renders err as the JSON error envelope.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	log := logx.WithFields(r.Context())
	if errors.Is(err, application.ErrConflict) {
		writeJSON(w, http.StatusConflict, errorBody{
			Code:    http.StatusConflict,
			Message: "A request with this idempotency key was already processed",
			Type:    "conflict",
		})
		return
	}
	e, ok := domain.AsError(err)
	if !ok {
		log.Error("request_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
			Type:    "internal_error",
		})
		return
	}

	status := statusFor(e.Kind)
	if e.Kind == domain.KindRateLimitExceeded {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfterSeconds()))
	}
	if status >= http.StatusInternalServerError {
		log.Error("request_failed", zap.String("type", string(e.Kind)), zap.Error(err))
	} else {
		log.Info("request_rejected", zap.String("type", string(e.Kind)), zap.String("message", e.Message))
	}
	writeJSON(w, status, errorBody{Code: status, Message: e.Message, Type: string(e.Kind), Details: e.Details()})
}
