package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phone-verification-api/internal/config"
	"github.com/phone-verification-api/internal/transport/http/handler"
	appmiddleware "github.com/phone-verification-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if deps.Logger != nil {
		r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(deps.Logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}))
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var recorder handler.UpsertRecorder
	var metrics *appmiddleware.Metrics
	if deps.Registry != nil {
		metrics = appmiddleware.NewMetrics(deps.Registry)
		r.Use(metrics.Instrument)
		recorder = metrics
	}

	healthH := handler.NewHealthHandler()
	verificationH := handler.NewVerificationHandler(deps.Verifications, recorder)
	phoneH := handler.NewPhoneHandler(deps.Verifications)

	r.Get("/health", healthH.Check)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/verifications", verificationH.Upsert)
		r.Put("/verifications", verificationH.Upsert)
		r.Get("/verifications", verificationH.List)
		r.Get("/verifications/{username}", verificationH.ListByUsername)
		r.Get("/phone/{username}", phoneH.GetByPath)
		r.Post("/phone", phoneH.Lookup)
	})

	return r
}
