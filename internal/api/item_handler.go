package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/review"
)

// ItemHandler handles memory item requests: queries go to the item query
// service and every schedule change to the review service.
type ItemHandler struct {
	reviews review.Service
	queries service.ItemQueryService
	logger  *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(reviews review.Service, queries service.ItemQueryService, logger *slog.Logger) *ItemHandler {
	if reviews == nil || queries == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("item handler requires review and item query services")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{
		reviews: reviews,
		queries: queries,
		logger:  logger.With(slog.String("component", "item_handler")),
	}
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.reviews.AddItem(r.Context(), userID, review.AddItemRequest{
		NotebookID: req.NotebookID,
		CurveID:    req.CurveID,
		Title:      req.Title,
		Content:    req.Content,
		ImagePaths: req.ImagePaths,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add item")
		return
	}
	log.Debug("item added",
		slog.String("item_id", item.ID.String()),
		slog.Time("next_review_at", item.NextReviewAt))
	shared.RespondWithJSON(w, r, http.StatusCreated, itemToResponse(item))
}

// List handles GET /api/items. Supported query parameters: notebook_id, q,
// status, deleted, limit and offset.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	req := service.ListItemsRequest{
		Query:  r.URL.Query().Get("q"),
		Status: domain.ItemStatus(r.URL.Query().Get("status")),
	}
	var err error
	if req.NotebookID, err = queryUUID(r, "notebook_id"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if req.Deleted, err = queryBool(r, "deleted"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.queries.List(r.Context(), userID, req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list items")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemsToResponse(items))
}

// Due handles GET /api/items/due.
func (h *ItemHandler) Due(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	items, err := h.queries.Due(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get due items")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemsToResponse(items))
}

// Get handles GET /api/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	item, err := h.queries.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get item")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// History handles GET /api/items/{id}/history.
func (h *ItemHandler) History(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	logs, err := h.queries.History(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get review history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reviewLogsToResponse(logs))
}

// Update handles PUT /api/items/{id}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.reviews.UpdateItem(r.Context(), userID, id, review.UpdateItemRequest{
		NotebookID: req.NotebookID,
		CurveID:    req.CurveID,
		Title:      req.Title,
		Content:    req.Content,
		ImagePaths: req.ImagePaths,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update item")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

type itemAction func(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)

// act runs a bodiless schedule change on the item named in the path.
func (h *ItemHandler) act(w http.ResponseWriter, r *http.Request, name string, fn itemAction) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	item, err := fn(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to "+name+" item")
		return
	}
	log.Debug("item "+name,
		slog.String("item_id", id.String()),
		slog.String("status", string(item.Status)),
		slog.Int("stage", item.StageIndex))
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// Remember handles POST /api/items/{id}/remember.
func (h *ItemHandler) Remember(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "remember", h.reviews.MarkRemembered)
}

// Forget handles POST /api/items/{id}/forget.
func (h *ItemHandler) Forget(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "forget", h.reviews.MarkForgot)
}

// Pause handles POST /api/items/{id}/pause.
func (h *ItemHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "pause", h.reviews.Pause)
}

// Resume handles POST /api/items/{id}/resume.
func (h *ItemHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "resume", h.reviews.Resume)
}

// Restore handles POST /api/items/{id}/restore.
func (h *ItemHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "restore", h.reviews.Restore)
}

// Postpone handles POST /api/items/{id}/postpone.
func (h *ItemHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req PostponeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.reviews.Postpone(r.Context(), userID, id, req.Minutes)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone item")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// Delete handles DELETE /api/items/{id}. The item moves to the trash.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.reviews.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
