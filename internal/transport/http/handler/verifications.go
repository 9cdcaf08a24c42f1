package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phone-verification-api/internal/application/verification"
	"github.com/phone-verification-api/internal/domain"
	"github.com/phone-verification-api/internal/pkg/validate"
)

const (
	msgCreated   = "verification code created"
	msgUpdated   = "verification code updated"
	msgNoRecords = "no records found for this user"
)

// UpsertRecorder counts upsert outcomes.
type UpsertRecorder interface {
	UpsertRecorded(created bool)
}

// VerificationHandler handles the verification record endpoints.
type VerificationHandler struct {
	svc verification.Service
	rec UpsertRecorder
}

// NewVerificationHandler returns a handler; rec may be nil.
func NewVerificationHandler(svc verification.Service, rec UpsertRecorder) *VerificationHandler {
	return &VerificationHandler{svc: svc, rec: rec}
}

func (h *VerificationHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, err, msgNoRecords)
		return
	}

	v, err := h.svc.UpsertByUsername(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, msgNoRecords)
		return
	}

	created := v.IsCreated()
	if h.rec != nil {
		h.rec.UpsertRecorded(created)
	}
	msg := msgUpdated
	if created {
		msg = msgCreated
	}
	writeOK(w, msg, v)
}

func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, msgNoRecords)
		return
	}
	writeOK(w, msgOK, rows)
}

func (h *VerificationHandler) ListByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := validate.Username(username); err != nil {
		writeServiceError(w, r, err, msgNoRecords)
		return
	}

	rows, err := h.svc.ListByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err, msgNoRecords)
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, msgNoRecords)
		return
	}
	writeOK(w, msgOK, rows)
}
