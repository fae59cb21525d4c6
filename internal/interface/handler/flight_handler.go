package handler

import (
	"net/http"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/usecase"
	"flight-tracker-service/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const indexPage = `<h1>Flight Price Tracker</h1>
<p>Server is running!</p>
<ul>
  <li>GET /seed - Load sample data</li>
  <li>GET /flights - Get all flights</li>
  <li>GET /flight/{id} - Get one flight</li>
  <li>POST /flight - Add flight</li>
  <li>PUT /flight/{id} - Update flight</li>
  <li>DELETE /flight/{id} - Delete flight</li>
  <li>GET /time-series?route=LHE-BKK - Price history</li>
  <li>GET /search?q=LHE&amp;maxPrice=600&amp;date=2025-06-01 - Hybrid search</li>
  <li>POST /tracking/{interval}/run - Run a tracking interval now</li>
  <li>GET /tracking/{interval}/runs - Recent tracking runs</li>
</ul>
`

// FlightHandler serves flight CRUD, seeding, time series and search
type FlightHandler struct {
	service  *usecase.FlightService
	search   *usecase.FlightSearch
	seedFile string
	logger   logger.Logger
}

// NewFlightHandler creates a new flight handler
func NewFlightHandler(
	service *usecase.FlightService,
	search *usecase.FlightSearch,
	seedFile string,
	logger logger.Logger,
) *FlightHandler {
	return &FlightHandler{
		service:  service,
		search:   search,
		seedFile: seedFile,
		logger:   logger,
	}
}

// Index handles GET /
func (h *FlightHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

// Seed handles GET /seed: replaces every flight with the seed file contents
func (h *FlightHandler) Seed(w http.ResponseWriter, r *http.Request) {
	inputs, err := usecase.LoadSeedFile(h.seedFile)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	n, err := h.service.Seed(r.Context(), inputs)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"message": "Data inserted", "count": n})
}

// List handles GET /flights
func (h *FlightHandler) List(w http.ResponseWriter, r *http.Request) {
	flights, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"data": flights})
}

// Get handles GET /flight/{id}
func (h *FlightHandler) Get(w http.ResponseWriter, r *http.Request) {
	flight, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"data": flight})
}

// Create handles POST /flight
func (h *FlightHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input entity.FlightInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := h.service.Create(r.Context(), &input)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, envelope{"id": id})
}

// Update handles PUT /flight/{id}
func (h *FlightHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update entity.FlightUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &update); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"message": "Updated"})
}

// Delete handles DELETE /flight/{id}
func (h *FlightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"message": "Deleted"})
}

// TimeSeries handles GET /time-series?route=
func (h *FlightHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	series, err := h.service.TimeSeries(r.Context(), route)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"route": route, "data": series})
}

// Search handles GET /search?q=&maxPrice=&date=
func (h *FlightHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, maxPrice, date := params.Get("q"), params.Get("maxPrice"), params.Get("date")

	query, err := usecase.ParseSearchQuery(q, maxPrice, date)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	results, err := h.search.Search(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		"query": map[string]interface{}{
			"q":        q,
			"maxPrice": nullable(maxPrice),
			"date":     nullable(date),
		},
		"count": len(results),
		"data":  results,
	})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
