package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// ServiceHandler - каталог услуг
type ServiceHandler struct {
	serviceUseCase usecase.ServiceUseCase
	logger         *slog.Logger
}

func NewServiceHandler(uc usecase.ServiceUseCase, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{serviceUseCase: uc, logger: logger}
}

// CreateService - новая услуга текущего исполнителя.
func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var input domain.NewService
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректное тело запроса", h.logger)
		return
	}

	service, err := h.serviceUseCase.CreateService(r.Context(), identity.UID, input)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, service, h.logger)
}

// ListActiveServices - все активные услуги с данными исполнителей.
func (h *ServiceHandler) ListActiveServices(w http.ResponseWriter, r *http.Request) {
	listings, err := h.serviceUseCase.ListActiveServices(r.Context())
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, listings, h.logger)
}

// ListProviderServices - услуги одного исполнителя.
func (h *ServiceHandler) ListProviderServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.serviceUseCase.ListProviderServices(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, services, h.logger)
}
