// Package httpapi is the HTTP/JSON transport over the service layer.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 8 << 20

type TokenIssuer interface {
	IssueCollectionToken(ctx context.Context, key, ip string) (string, error)
	IssueStagingToken(ctx context.Context, key, token, ip string) error
}

type Catalog interface {
	PutMasterData(ctx context.Context, key string, items []*models.MasterItem, ip string) (string, error)
	GetMasterData(ctx context.Context, token string) ([]*models.MasterItem, error)
	LookupBarcode(ctx context.Context, barcode string) ([]*models.BarcodeInfo, error)
}

type Collector interface {
	SubmitCollectedData(ctx context.Context, token string, items []*models.CollectedItem) error
	GetCollectedData(ctx context.Context, token string) ([]*models.CollectedItemView, error)
}

type Stager interface {
	PutXmlStaging(ctx context.Context, key, token, payload, ip string) error
	GetXmlStaging(ctx context.Context, token string) (string, error)
}

type Features interface {
	RemoveAdsEnabled(ctx context.Context, token string) (bool, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the API routes.
type Handler struct {
	tokens    TokenIssuer
	catalog   Catalog
	collected Collector
	staging   Stager
	features  Features
	db        Pinger
	log       logging.Logger
}

func NewHandler(t TokenIssuer, c Catalog, col Collector, s Stager, f Features, db Pinger, log logging.Logger) *Handler {
	return &Handler{
		tokens:    t,
		catalog:   c,
		collected: col,
		staging:   s,
		features:  f,
		db:        db,
		log:       log.With("module", "http"),
	}
}

// remoteIP strips the port from the request's remote address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return bodyError(err, "invalid JSON body")
	}
	return nil
}

// bodyError maps a body read failure to 413 when the size cap was hit and to
// 400 otherwise.
func bodyError(err error, message string) *APIError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
	}
	return badRequest(message)
}

// IssueToken handles POST /api/v1/keys/{key}/tokens
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.IssueCollectionToken(r.Context(), chi.URLParam(r, "key"), remoteIP(r))
	if err != nil {
		fail(w, err)
		return
	}
	created(w, map[string]string{"token": token})
}

// IssueStagingToken handles PUT /api/v1/keys/{key}/staging/{token}
func (h *Handler) IssueStagingToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.tokens.IssueStagingToken(r.Context(), chi.URLParam(r, "key"), token, remoteIP(r)); err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]string{"token": token})
}

// PutMasterData handles POST /api/v1/keys/{key}/masterdata
func (h *Handler) PutMasterData(w http.ResponseWriter, r *http.Request) {
	var items []*models.MasterItem
	if err := decodeJSON(w, r, &items); err != nil {
		fail(w, err)
		return
	}

	token, err := h.catalog.PutMasterData(r.Context(), chi.URLParam(r, "key"), items, remoteIP(r))
	if err != nil {
		fail(w, err)
		return
	}
	created(w, map[string]string{"token": token})
}

// GetMasterData handles GET /api/v1/masterdata/{token}
func (h *Handler) GetMasterData(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.GetMasterData(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, err)
		return
	}
	if items == nil {
		items = []*models.MasterItem{}
	}
	ok(w, items)
}

// LookupBarcode handles GET /api/v1/barcodes/{barcode}
func (h *Handler) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	infos, err := h.catalog.LookupBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		fail(w, err)
		return
	}
	if infos == nil {
		infos = []*models.BarcodeInfo{}
	}
	ok(w, infos)
}

// SubmitCollected handles POST /api/v1/collected/{token}
func (h *Handler) SubmitCollected(w http.ResponseWriter, r *http.Request) {
	var items []*models.CollectedItem
	if err := decodeJSON(w, r, &items); err != nil {
		fail(w, err)
		return
	}

	if err := h.collected.SubmitCollectedData(r.Context(), chi.URLParam(r, "token"), items); err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]int{"items": len(items)})
}

// GetCollected handles GET /api/v1/collected/{token}
func (h *Handler) GetCollected(w http.ResponseWriter, r *http.Request) {
	items, err := h.collected.GetCollectedData(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, err)
		return
	}
	if items == nil {
		items = []*models.CollectedItemView{}
	}
	ok(w, items)
}

// PutXML handles PUT /api/v1/keys/{key}/xml/{token}. The body is stored
// verbatim.
func (h *Handler) PutXML(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		fail(w, bodyError(err, "unreadable request body"))
		return
	}

	token := chi.URLParam(r, "token")
	if err := h.staging.PutXmlStaging(r.Context(), chi.URLParam(r, "key"), token, string(body), remoteIP(r)); err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"token": token, "bytes": len(body)})
}

// GetXML handles GET /api/v1/xml/{token}
func (h *Handler) GetXML(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	payload, err := h.staging.GetXmlStaging(r.Context(), token)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]string{"token": token, "xml": payload})
}

// RemoveAds handles GET /api/v1/tokens/{token}/removeads
func (h *Handler) RemoveAds(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.features.RemoveAdsEnabled(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]bool{"removeads": enabled})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn(ctx, "health check failed", "error", err)
		fail(w, newAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database unavailable"))
		return
	}
	ok(w, map[string]string{"status": "ok"})
}
