package handler

import "net/http"

// HealthHandler answers liveness checks. It does not touch the store.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, msgOK, map[string]string{"status": "healthy"})
}
