package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Claims
		r.Post("/claims", h.CreateClaim)
		r.Get("/claims/{id}", h.GetClaim)
		r.Get("/claims/{id}/next-states", h.GetNextStates)
		r.Post("/claims/{id}/transition", h.TransitionClaim)
		r.Get("/claims/{id}/transitions", h.ListTransitions)
		r.Get("/claims/{id}/events", h.ListEvents)

		// Denials (nested under claims + direct access)
		r.Post("/claims/{id}/deny", h.DenyClaim)
		r.Post("/denials/{id}/process", h.ProcessDenial)

		// Decisions (nested under claims + direct access)
		r.Get("/claims/{id}/decisions", h.ListClaimDecisions)
		r.Get("/decisions/{id}", h.GetDecision)
		r.Post("/decisions/{id}/execute", h.ExecuteDecision)
		r.Post("/decisions/{id}/override", h.OverrideDecision)
		r.Get("/decisions/{id}/outcome", h.GetDecisionOutcome)

		// Analytics
		r.Get("/analytics/success-rates", h.GetSuccessRate)
		r.Get("/analytics/revenue", h.GetRevenue)
	})
}
