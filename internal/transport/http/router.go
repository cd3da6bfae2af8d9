// Package transport is the thin HTTP layer. Handlers decode, delegate to
// domain services and encode; no business logic lives here.
package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"onward/internal/auth"
	credsvc "onward/internal/credential/service"
	empsvc "onward/internal/employee/service"
	"onward/internal/onboarding"
	orgsvc "onward/internal/organization/service"
)

// Handler holds the domain services the routes delegate to.
type Handler struct {
	organizations *orgsvc.Service
	employees     *empsvc.Service
	onboarding    *onboarding.Service
	setupCodes    *credsvc.Service
	auth          *auth.Service
	logger        *slog.Logger
}

// Config collects the handler's collaborators.
type Config struct {
	Organizations *orgsvc.Service
	Employees     *empsvc.Service
	Onboarding    *onboarding.Service
	SetupCodes    *credsvc.Service
	Auth          *auth.Service
}

func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		organizations: cfg.Organizations,
		employees:     cfg.Employees,
		onboarding:    cfg.Onboarding,
		setupCodes:    cfg.SetupCodes,
		auth:          cfg.Auth,
		logger:        logger,
	}
}

// NewRouter wires all endpoints. Sign-in routes are public; everything
// touching tenant data sits behind the bearer-token gate.
func NewRouter(h *Handler, validator TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestContext)
	r.Use(Recovery(h.logger))
	r.Use(Logger(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/magic-links", h.requestMagicLink)
		r.Post("/magic-links/redeem", h.redeemMagicLink)
		r.Post("/refresh", h.refresh)
	})
	r.Post("/setup-codes/redeem", h.redeemSetupCode)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(validator, h.logger))

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", h.createOrganization)
			r.Route("/{orgID}", func(r chi.Router) {
				r.Get("/", h.getOrganization)
				r.Post("/suspend", h.suspendOrganization)
				r.Post("/reactivate", h.reactivateOrganization)
				r.Post("/secret", h.rotateOrganizationSecret)
				r.Put("/settings", h.updateOrganizationSettings)

				r.Route("/setup-codes", func(r chi.Router) {
					r.Post("/", h.issueSetupCode)
					r.Get("/", h.listSetupCodes)
				})

				r.Route("/employees", func(r chi.Router) {
					r.Post("/", h.createEmployee)
					r.Get("/", h.listEmployees)
					r.Get("/by-relation", h.listEmployeesByRelation)
					r.Route("/{employeeID}", func(r chi.Router) {
						r.Get("/", h.getEmployee)
						r.Patch("/", h.patchEmployee)
						r.Delete("/", h.deleteEmployee)

						r.Route("/onboarding", func(r chi.Router) {
							r.Post("/stage", h.advanceStage)
							r.Post("/progress", h.setProgress)
							r.Post("/tasks/{taskID}", h.updateTask)
						})
					})
				})
			})
		})
	})

	return r
}
