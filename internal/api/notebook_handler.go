package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// NotebookHandler handles notebook requests.
type NotebookHandler struct {
	notebooks service.NotebookService
	logger    *slog.Logger
}

// NewNotebookHandler creates a NotebookHandler.
func NewNotebookHandler(notebooks service.NotebookService, logger *slog.Logger) *NotebookHandler {
	if notebooks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("notebook service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotebookHandler{
		notebooks: notebooks,
		logger:    logger.With(slog.String("component", "notebook_handler")),
	}
}

// List handles GET /api/notebooks.
func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	nbs, err := h.notebooks.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notebooks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, notebooksToResponse(nbs))
}

// Create handles POST /api/notebooks.
func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateNotebookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	nb, err := h.notebooks.Create(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create notebook")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, notebookToResponse(nb))
}

// Get handles GET /api/notebooks/{id}.
func (h *NotebookHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	nb, err := h.notebooks.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get notebook")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, notebookToResponse(nb))
}

// Update handles PUT /api/notebooks/{id}.
func (h *NotebookHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateNotebookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	nb, err := h.notebooks.Update(r.Context(), userID, id, req.Name, req.Color)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notebook")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, notebookToResponse(nb))
}

// Delete handles DELETE /api/notebooks/{id}. The notebook's items go with it.
func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.notebooks.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete notebook")
		return
	}
	log.Debug("notebook deleted", slog.String("notebook_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
