package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/MarketApp/internal/capture"
	"github.com/GoArmGo/MarketApp/internal/usecase"
)

// CaptureSessions выдает сессии камеры по пользователям (capture.Manager)
type CaptureSessions interface {
	Session(ownerID string) *capture.Session
	Release(ownerID string) error
}

// CameraHub принимает поток кадров от браузера (camera.Hub)
type CameraHub interface {
	Deny(ownerID string) bool
	ServeWS(w http.ResponseWriter, r *http.Request, ownerID string)
}

// CaptureHandler - съемка фото профиля с камеры
type CaptureHandler struct {
	photoUseCase  usecase.PhotoUseCase
	sessions      CaptureSessions
	hub           CameraHub
	openTimeout   time.Duration
	uploadLimiter chan struct{}
	logger        *slog.Logger
}

func NewCaptureHandler(
	uc usecase.PhotoUseCase,
	sessions CaptureSessions,
	hub CameraHub,
	openTimeout time.Duration,
	limiter chan struct{},
	logger *slog.Logger,
) *CaptureHandler {
	return &CaptureHandler{
		photoUseCase:  uc,
		sessions:      sessions,
		hub:           hub,
		openTimeout:   openTimeout,
		uploadLimiter: limiter,
		logger:        logger,
	}
}

type captureState struct {
	State string `json:"state"`
}

// Start - запросить камеру. Ответ приходит, когда браузер подключит поток
// к /api/capture/ws или откажет в доступе.
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.openTimeout)
	defer cancel()

	session := h.sessions.Session(identity.UID)
	if err := session.Start(ctx); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, captureState{State: session.State().String()}, h.logger)
}

// Stop - остановить камеру.
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.sessions.Release(identity.UID); err != nil {
		h.logger.Warn("failed to stop capture", "user_id", identity.UID, "error", err)
	}
	respondWithJSON(w, http.StatusOK, captureState{State: capture.StateIdle.String()}, h.logger)
}

// Deny - браузер сообщает, что пользователь не дал доступ к камере.
func (h *CaptureHandler) Deny(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	if !h.hub.Deny(identity.UID) {
		respondWithError(w, http.StatusConflict, "Камера не запрашивалась", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shot - снять кадр и сохранить его как фото. Камера после снимка останавливается.
func (h *CaptureHandler) Shot(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	release, ok := acquireUpload(r.Context(), h.uploadLimiter)
	if !ok {
		respondWithError(w, http.StatusServiceUnavailable, "Слишком много загрузок, попробуйте позже", h.logger)
		return
	}
	defer release()

	photo, err := h.photoUseCase.CaptureAndAddPhoto(r.Context(), identity.UID, h.sessions.Session(identity.UID))
	if relErr := h.sessions.Release(identity.UID); relErr != nil {
		h.logger.Warn("failed to release capture session", "owner_id", identity.UID, "error", relErr)
	}
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, photo, h.logger)
}

// Stream - WebSocket с кадрами камеры.
func (h *CaptureHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, identity.UID)
}
