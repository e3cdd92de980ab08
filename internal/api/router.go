/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * authentication middleware appropriate to each route group.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finvault/ledger-service/internal/app"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

// LedgerRoutes creates and returns the router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, service *app.Service, partnership *sharedtoken.Partnership, sessionSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Customer-facing routes authenticated by session JWT.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessionSecret))

		r.Post("/transfers", h.CreateTransferHandler)
		r.Get("/transfers", h.ListTransfersHandler)
	})

	// Gateway-facing routes authenticated by the partner service token.
	r.Route("/gateway", func(r chi.Router) {
		r.Use(ServiceTokenMiddleware(partnership))

		r.Post("/link", h.LinkAccountHandler)

		// These additionally require a valid account-scoped token.
		r.Group(func(r chi.Router) {
			r.Use(AccountTokenMiddleware(service))

			r.Get("/accounts/info", h.AccountInfoHandler)
			r.Post("/transfers/confirmed", h.ConfirmedTransferHandler)
		})
	})

	return r
}
