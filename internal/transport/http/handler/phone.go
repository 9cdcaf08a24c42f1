package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phone-verification-api/internal/application/verification"
	"github.com/phone-verification-api/internal/domain"
	"github.com/phone-verification-api/internal/pkg/validate"
)

const msgNoPhone = "no phone number found for this user"

// PhoneHandler resolves a username to the phone on its current record.
type PhoneHandler struct {
	svc verification.Service
}

func NewPhoneHandler(svc verification.Service) *PhoneHandler { return &PhoneHandler{svc: svc} }

// GetByPath serves GET /api/phone/{username}.
func (h *PhoneHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := validate.Username(username); err != nil {
		writeServiceError(w, r, err, msgNoPhone)
		return
	}
	h.lookup(w, r, username)
}

// Lookup serves POST /api/phone with a {"username": ...} body.
func (h *PhoneHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, err, msgNoPhone)
		return
	}
	h.lookup(w, r, req.Username)
}

func (h *PhoneHandler) lookup(w http.ResponseWriter, r *http.Request, username string) {
	phone, err := h.svc.FindPhoneByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err, msgNoPhone)
		return
	}
	writeOK(w, msgOK, domain.PhoneLookup{Phone: phone, Username: username})
}
