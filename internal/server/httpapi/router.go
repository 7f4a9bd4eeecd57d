package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires the middleware stack and routes.
func NewRouter(h *Handler, log logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging(log))
	r.Use(Recovery(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, newAPIError(http.StatusNotFound, "NOT_FOUND", "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, newAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed"))
	})

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/keys/{key}", func(r chi.Router) {
			r.Post("/tokens", h.IssueToken)
			r.Put("/staging/{token}", h.IssueStagingToken)
			r.Post("/masterdata", h.PutMasterData)
			r.Put("/xml/{token}", h.PutXML)
		})

		r.Get("/masterdata/{token}", h.GetMasterData)
		r.Get("/barcodes/{barcode}", h.LookupBarcode)

		r.Post("/collected/{token}", h.SubmitCollected)
		r.Get("/collected/{token}", h.GetCollected)

		r.Get("/xml/{token}", h.GetXML)
		r.Get("/tokens/{token}/removeads", h.RemoveAds)
	})

	return r
}
