// Package server exposes the quote engine over HTTP. It is thin host glue:
// every request builds a fresh engine session, applies the payload, and
// returns the settled result, so no quote state leaks between requests.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/engine"
	"github.com/precisionworks/quote-engine/internal/ledger"
	"github.com/precisionworks/quote-engine/internal/levers"
	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/internal/pricing"
)

// QuoteStore is the persistence surface the server needs: the material
// catalog plus saved quote history.
type QuoteStore interface {
	pricing.MaterialSource
	ListMaterials(ctx context.Context) ([]model.Material, error)
	SaveQuote(ctx context.Context, rec model.QuoteRecord) (*model.QuoteRecord, error)
	ListQuotes(ctx context.Context, limit int) ([]model.QuoteRecord, error)
}

type handler struct {
	logger  *zap.Logger
	store   QuoteStore
	solver  *levers.Solver
	calc    *pricing.Calculator
	windows engine.Windows
	version string
}

// NewHandler constructs the HTTP handler serving the quote API.
func NewHandler(logger *zap.Logger, store QuoteStore, solver *levers.Solver, calc *pricing.Calculator, windows engine.Windows, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}

	h := &handler{logger: logger, store: store, solver: solver, calc: calc, windows: windows, version: version}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", h.handleHealth)
	r.Get("/api/version", h.handleVersion)
	r.Get("/api/materials", h.handleMaterials)
	r.Post("/api/quote", h.handleQuote)
	r.Post("/api/quotes", h.handleSaveQuote)
	r.Get("/api/quotes", h.handleListQuotes)

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) handleMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.store.ListMaterials(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to list materials", "server.handleMaterials")
		return
	}
	h.writeJSON(w, http.StatusOK, materials)
}

// handleQuote runs the engine once over a cost/geometry payload and returns
// the settled physical state plus the anchor breakdown and quantity breaks.
func (h *handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var in model.QuoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "server.handleQuote")
		return
	}
	if in.Material == "" {
		h.respondError(w, http.StatusBadRequest, "material_name is required", "server.handleQuote")
		return
	}

	sess := engine.NewSession(h.solver, h.calc, nil, h.windows, h.logger)
	defer sess.Close()

	result, err := sess.Apply(r.Context(), in)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), "server.handleQuote")
		return
	}

	// Unpriceable payloads carry their warnings but no break table.
	var breaks []pricing.PriceBreak
	if result.Priced {
		breaks, err = h.calc.CalculatePriceBreaks(r.Context(), model.QuoteInput{
			Material:     in.Material,
			Stock:        result.Stock,
			PartVolume:   result.PartVolume,
			SetupTime:    in.SetupTime,
			ShopRate:     in.ShopRate,
			HandlingTime: in.HandlingTime,
		})
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to compute price breaks", "server.handleQuote")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, struct {
		engine.Result
		PriceBreaks []pricing.PriceBreak `json:"price_breaks,omitempty"`
	}{Result: result, PriceBreaks: breaks})
}

// handleSaveQuote persists a finished quote. Saves are refused while the
// variance attribution does not close to exactly 100%.
func (h *handler) handleSaveQuote(w http.ResponseWriter, r *http.Request) {
	var rec model.QuoteRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "server.handleSaveQuote")
		return
	}
	if rec.QuoteID == "" {
		rec.QuoteID = engine.GenerateQuoteID()
	}

	if err := validateAttribution(rec.GlassBox); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), "server.handleSaveQuote")
		return
	}

	saved, err := h.store.SaveQuote(r.Context(), rec)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to save quote", "server.handleSaveQuote")
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *handler) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.store.ListQuotes(r.Context(), 50)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to list quotes", "server.handleListQuotes")
		return
	}
	if quotes == nil {
		quotes = []model.QuoteRecord{}
	}
	h.writeJSON(w, http.StatusOK, quotes)
}

// validateAttribution enforces the save-time weight closure: cause weight
// fractions must sum to exactly 1 when an attribution is present.
func validateAttribution(gb model.GlassBox) error {
	if gb.Attribution == nil {
		return nil
	}
	total := 0
	for _, frac := range gb.Attribution.Causes {
		total += int(frac*100 + 0.5)
	}
	if total != 100 {
		return ledger.ErrWeightsNotClosed
	}
	return nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
