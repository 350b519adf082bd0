// Package handlers provides HTTP handlers for the training API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/eshopdash/forecaster/internal/modules/training"
)

// Handlers provides HTTP handlers for the training API
type Handlers struct {
	orchestrator *training.Orchestrator
	log          zerolog.Logger
}

// NewHandlers creates new training handlers
func NewHandlers(orchestrator *training.Orchestrator, log zerolog.Logger) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		log:          log.With().Str("component", "training_handlers").Logger(),
	}
}

// HandleStartTraining launches a background training run
// POST /api/training/start?lookback_days=90
func (h *Handlers) HandleStartTraining(w http.ResponseWriter, r *http.Request) {
	lookbackDays := 0
	if raw := r.URL.Query().Get("lookback_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			h.respondError(w, http.StatusBadRequest, "lookback_days must be a positive integer")
			return
		}
		lookbackDays = v
	}

	if !h.orchestrator.Start(lookbackDays) {
		h.respondJSON(w, http.StatusConflict, map[string]interface{}{
			"started": false,
			"message": "A training run is already in progress",
		})
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"started": true,
	})
}

// HandleStatus reports the current run state
// GET /api/training/status
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.orchestrator.Status())
}

// HandleResults returns the most recent completed run
// GET /api/training/results
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	result := h.orchestrator.LastResult()
	if result == nil {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"results": nil,
			"message": "No completed training run",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": result,
	})
}

// HandleProductResult returns one product's slice of the latest run
// GET /api/training/results/products/{id}
func (h *Handlers) HandleProductResult(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	result := h.orchestrator.LastResult()
	if result == nil {
		h.respondError(w, http.StatusNotFound, "No completed training run")
		return
	}

	product := result.ProductFor(id)
	if product == nil {
		h.respondError(w, http.StatusNotFound, "Product was not trained in the latest run")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"product": product,
	})
}

// HandleProgressStream streams run state snapshots over a websocket until the
// client disconnects.
// GET /api/training/ws
func (h *Handlers) HandleProgressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	updates := h.orchestrator.Subscribe()
	defer h.orchestrator.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, snap)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Helper methods

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
	})
}

// RegisterRoutes registers all training routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/training", func(r chi.Router) {
		r.Post("/start", h.HandleStartTraining)
		r.Get("/status", h.HandleStatus)
		r.Get("/results", h.HandleResults)
		r.Get("/results/products/{id}", h.HandleProductResult)
		r.Get("/ws", h.HandleProgressStream)
	})
}
