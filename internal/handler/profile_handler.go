package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// ProfileHandler - профили пользователей и список исполнителей
type ProfileHandler struct {
	profileUseCase usecase.ProfileUseCase
	logger         *slog.Logger
}

func NewProfileHandler(uc usecase.ProfileUseCase, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileUseCase: uc, logger: logger}
}

// Me - профиль текущего пользователя (создается при первом обращении).
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.profileUseCase.GetOrCreateProfile(r.Context(), identity)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, user, h.logger)
}

// UpdateMe - частичное обновление своего профиля.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректное тело запроса", h.logger)
		return
	}

	// профиль мог еще не существовать
	if _, err := h.profileUseCase.GetOrCreateProfile(r.Context(), identity); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}

	user, err := h.profileUseCase.UpdateProfile(r.Context(), identity.UID, update)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, user, h.logger)
}

// GetProfile - чужой профиль по uid.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.profileUseCase.GetProfile(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, user, h.logger)
}

// ListProviders - исполнители с фотографиями.
func (h *ProfileHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	cards, err := h.profileUseCase.ListProviders(r.Context())
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, cards, h.logger)
}
