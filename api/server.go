/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     One zerolog event per request (logging.RequestLogger)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontends
  5. RateLimit:  Per-IP request budget (go-chi/httprate)

ROUTE GROUPS:
  /api/quotes/*     Spot quotes
  /api/lanes/*      Lane planning and booking
  /api/billing/*    Billing date lookups
  /api/invoices/*   Invoice lifecycle
  /api/late-fees/*  Sweeps, run history, rate configuration
  /healthz          Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/warp/freight-engine/logging"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	// RequestsPerMinute per client IP; zero disables the limiter.
	RequestsPerMinute int
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		AllowedOrigins:    []string{"http://localhost:5173", "http://localhost:8080"},
		RequestsPerMinute: 120,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logging.WithComponent("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RequestsPerMinute > 0 {
			r.Use(httprate.Limit(opts.RequestsPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), nil)
				}),
			))
		}

		r.Post("/quotes/spot", h.QuoteSpot)

		// Lane routes
		r.Route("/lanes", func(r chi.Router) {
			r.Post("/plan", h.PlanLane)
			r.Post("/book", h.BookLane)
		})

		r.Get("/billing/next-date", h.NextBillingDate)

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/cancel", h.CancelInvoice)
		})

		// Late fee routes
		r.Route("/late-fees", func(r chi.Router) {
			r.Post("/sweep", h.SweepLateFees)
			r.Get("/runs", h.ListAccrualRuns)
			r.Get("/rates/{category}", h.GetRate)
			r.Put("/rates/{category}", h.SetRate)
		})
	})

	return r
}
