// Package handlers contains the HTTP handlers of the surfcast API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"surfcast/internal/core"
	"surfcast/internal/db"
	"surfcast/internal/types"
)

// ForecastReader is the read side of the forecast repository.
type ForecastReader interface {
	Get(ctx context.Context, locationID string) (*db.ForecastRow, error)
	List(ctx context.Context) ([]db.ForecastRow, error)
}

// LocationCatalog resolves and lists surf locations.
type LocationCatalog interface {
	Get(id string) (types.SurfLocation, error)
	Summaries() []types.LocationSummary
}

// ForecastStatus is one row of GET /v1/forecasts.
type ForecastStatus struct {
	LocationID  string    `json:"location_id"`
	State       string    `json:"state"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
	Hours       int       `json:"hours"`
}

// ForecastHandler serves stored forecasts and the location catalog.
type ForecastHandler struct {
	store   ForecastReader
	catalog LocationCatalog
	logger  *slog.Logger
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(store ForecastReader, catalog LocationCatalog, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{store: store, catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the endpoints on a /v1 router.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/locations", h.HandleListLocations)
	r.Get("/forecasts", h.HandleListForecasts)
	r.Get("/forecasts/{locationID}", h.HandleGetForecast)
}

// HandleListLocations handles GET /v1/locations.
func (h *ForecastHandler) HandleListLocations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=7200")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.catalog.Summaries()})
}

// HandleListForecasts handles GET /v1/forecasts: the freshness of every
// stored forecast, without the hourly payload.
func (h *ForecastHandler) HandleListForecasts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	out := make([]ForecastStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, ForecastStatus{
			LocationID:  row.LocationID,
			State:       row.State,
			Model:       row.Model,
			GeneratedAt: row.GeneratedAt,
			Hours:       row.Hours,
		})
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: out})
}

// HandleGetForecast handles GET /v1/forecasts/{locationID}. The stored
// document is returned as-is inside the envelope.
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	ctx := types.WithLocationID(r.Context(), locationID)

	if _, err := h.catalog.Get(locationID); err != nil {
		core.Error(w, r, err)
		return
	}

	row, err := h.store.Get(ctx, locationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !json.Valid(row.Document) {
		h.logger.ErrorContext(ctx, "stored forecast is not valid JSON", "location_id", locationID)
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, "stored forecast is corrupt", nil))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=1800")
	w.Header().Set("Last-Modified", row.GeneratedAt.UTC().Format(http.TimeFormat))
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: json.RawMessage(row.Document)})
}
