package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mobiguard/internal/domain/models"
	"mobiguard/internal/domain/services"
	"mobiguard/pkg/logger"
)

// PhoneHandler handles single phone number checks
type PhoneHandler struct {
	scanner *services.BatchScanner
	logger  *logger.Logger
}

// NewPhoneHandler creates a new PhoneHandler
func NewPhoneHandler(scanner *services.BatchScanner, log *logger.Logger) *PhoneHandler {
	return &PhoneHandler{
		scanner: scanner,
		logger:  log.WithComponent("phone-handler"),
	}
}

// PhoneCheckRequest represents a phone check request
type PhoneCheckRequest struct {
	Number string `json:"number"`
}

// CheckPhone handles POST /api/v1/phone/check. A single number goes through
// the same scan pipeline as a batch of one.
func (h *PhoneHandler) CheckPhone(w http.ResponseWriter, r *http.Request) {
	var req PhoneCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subject, err := models.NewSubject(models.SubjectKindPhone, req.Number)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSubject) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to parse phone number")
		return
	}

	result := h.scanner.Scan(r.Context(), []models.Subject{subject})
	if len(result.Verdicts) == 0 {
		respondError(w, http.StatusInternalServerError, "scan produced no verdict")
		return
	}

	respondJSON(w, http.StatusOK, result.Verdicts[0])
}
