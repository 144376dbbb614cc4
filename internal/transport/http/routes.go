package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router wires the full route surface behind the shared middleware stack.
func Router(h *Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/swagger/*", httpSwagger.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Use(h.ensureIdentity)

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", h.listCommunities)
			r.Post("/", h.createCommunity)
			r.Get("/{id}", h.getCommunity)
			r.Post("/{id}/join", h.joinCommunity)
			r.Get("/{id}/jobs", h.listCommunityJobs)
			r.Post("/{id}/jobs", h.createJob)
		})

		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", h.getJob)
			r.Patch("/", h.updateJob)
			r.Delete("/", h.deleteJob)
			r.Post("/apply", h.applyToJob)
			r.Get("/applicants", h.listApplicants)
			r.Post("/applicants/{userID}/accept", h.acceptApplicant)
			r.Post("/applicants/{userID}/reject", h.rejectApplicant)
			r.Post("/close", h.closeJob)
			r.Post("/reopen", h.reopenJob)
			r.Post("/payment", h.confirmPayment)
			r.Post("/rating", h.submitRating)
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/applications", h.listApplications)
			r.Get("/notifications", h.listNotifications)
			r.Post("/notifications/{id}/read", h.markNotificationRead)
			r.Put("/skills", h.updateSkills)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", h.getUser)
			r.Get("/history", h.getUserHistory)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.listChats)
			r.Post("/", h.startChat)
			r.Delete("/{id}", h.deleteChat)
			r.Get("/{id}/messages", h.listMessages)
			r.Post("/{id}/messages", h.sendMessage)
		})

		r.Get("/geo/suggest", h.suggestPlaces)
		r.Get("/events", h.streamEvents)
	})

	return r
}
