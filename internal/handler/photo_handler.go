package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// запас на остальные части multipart-формы
const multipartOverhead = 1 << 20

// PhotoHandler - обработчик HTTP-запросов для работы с фотографиями профиля.
type PhotoHandler struct {
	photoUseCase  usecase.PhotoUseCase
	uploadLimiter chan struct{}
	logger        *slog.Logger
}

// NewPhotoHandler создаёт новый экземпляр PhotoHandler.
func NewPhotoHandler(uc usecase.PhotoUseCase, limiter chan struct{}, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{
		photoUseCase:  uc,
		uploadLimiter: limiter,
		logger:        logger,
	}
}

// ListPhotos - фото пользователя, новые первыми.
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	photos, err := h.photoUseCase.ListPhotos(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, photos, h.logger)
}

// UploadPhoto - загрузка фото из поля формы "photo".
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	payload, err := readPhotoPart(w, r)
	if err != nil {
		h.logger.Warn("invalid upload form", "user_id", identity.UID, "error", err)
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	release, ok := acquireUpload(r.Context(), h.uploadLimiter)
	if !ok {
		respondWithError(w, http.StatusServiceUnavailable, "Слишком много загрузок, попробуйте позже", h.logger)
		return
	}
	defer release()

	photo, err := h.photoUseCase.AddPhoto(r.Context(), identity.UID, payload)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("photo uploaded", "user_id", identity.UID, "photo_id", photo.ID, "is_primary", photo.IsPrimary)
	respondWithJSON(w, http.StatusCreated, photo, h.logger)
}

// SetPrimary - сделать фото основным.
func (h *PhotoHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}
	photoID, ok := h.photoID(w, r)
	if !ok {
		return
	}

	if err := h.photoUseCase.SetPrimary(r.Context(), identity.UID, photoID); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Основное фото обновлено"}, h.logger)
}

// DeletePhoto - удалить свое фото.
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}
	photoID, ok := h.photoID(w, r)
	if !ok {
		return
	}

	if err := h.photoUseCase.DeleteOwnPhoto(r.Context(), identity.UID, photoID); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PhotoHandler) photoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("invalid photo id", "id", raw)
		respondWithError(w, http.StatusBadRequest, "Некорректный id фото", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// readPhotoPart читает файл из multipart-формы. Тип и размер проверяет usecase.
func readPhotoPart(w http.ResponseWriter, r *http.Request) (domain.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadSize+multipartOverhead)

	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Payload{}, fmt.Errorf("файл слишком большой (максимум %d байт)", domain.MaxUploadSize)
		}
		return domain.Payload{}, fmt.Errorf("не найден файл в поле photo")
	}
	defer file.Close()

	// читаем на байт больше лимита, чтобы usecase увидел превышение
	data, err := io.ReadAll(io.LimitReader(file, domain.MaxUploadSize+1))
	if err != nil {
		return domain.Payload{}, fmt.Errorf("не удалось прочитать файл")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return domain.Payload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
