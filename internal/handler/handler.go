package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/MarketApp/internal/domain"
)

// respondWithJSON - отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError - отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

// respondWithDomainError подбирает HTTP-статус по доменной ошибке
func respondWithDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	code, message := statusForError(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "status", code, "error", err)
	} else {
		logger.Warn("request rejected", "status", code, "error", err)
	}
	respondWithError(w, code, message, logger)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Не найдено"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Доступ запрещен"
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "Нет доступа к камере"
	case errors.Is(err, domain.ErrSourceNotActive):
		return http.StatusConflict, "Камера не активна"
	case errors.Is(err, domain.ErrSourceBusy):
		return http.StatusConflict, "Камера уже запрашивается"
	case errors.Is(err, domain.ErrDeviceError):
		return http.StatusBadGateway, "Ошибка камеры"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, "Не удалось загрузить файл"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Хранилище временно недоступно"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Превышено время ожидания"
	default:
		return http.StatusInternalServerError, "Внутренняя ошибка сервера"
	}
}

// acquireUpload занимает слот в лимитере параллельных загрузок
func acquireUpload(ctx context.Context, limiter chan struct{}) (func(), bool) {
	select {
	case limiter <- struct{}{}:
		return func() { <-limiter }, true
	case <-ctx.Done():
		return nil, false
	}
}
