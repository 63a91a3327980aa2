package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// CurveHandler handles review curve requests.
type CurveHandler struct {
	curves service.CurveService
	logger *slog.Logger
}

// NewCurveHandler creates a CurveHandler.
func NewCurveHandler(curves service.CurveService, logger *slog.Logger) *CurveHandler {
	if curves == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("curve service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CurveHandler{
		curves: curves,
		logger: logger.With(slog.String("component", "curve_handler")),
	}
}

// List handles GET /api/curves. The default curve comes first.
func (h *CurveHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	curves, err := h.curves.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list curves")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, curvesToResponse(curves))
}

// Create handles POST /api/curves.
func (h *CurveHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateCurveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	curve, err := h.curves.Create(r.Context(), userID, req.Name, req.Intervals, req.MakeDefault)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create curve")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, curveToResponse(curve))
}

// Get handles GET /api/curves/{id}.
func (h *CurveHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	curve, err := h.curves.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get curve")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, curveToResponse(curve))
}

// Update handles PUT /api/curves/{id}.
func (h *CurveHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateCurveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	curve, err := h.curves.Update(r.Context(), userID, id, req.Name, req.Intervals)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update curve")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, curveToResponse(curve))
}

// Delete handles DELETE /api/curves/{id}.
func (h *CurveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.curves.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete curve")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault handles POST /api/curves/{id}/default.
func (h *CurveHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	curve, err := h.curves.SetDefault(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to set default curve")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, curveToResponse(curve))
}
