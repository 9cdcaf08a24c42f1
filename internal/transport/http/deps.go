package http

import (
	"log/slog"

	"github.com/phone-verification-api/internal/application/verification"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds everything the router needs. It is built once in main.
type Deps struct {
	Verifications verification.Service
	Logger        *slog.Logger
	// Registry receives the HTTP and upsert collectors; nil disables /metrics.
	Registry *prometheus.Registry
}
