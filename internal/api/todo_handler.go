package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// TodoHandler handles todo and todo tag requests.
type TodoHandler struct {
	todos  service.TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a TodoHandler.
func NewTodoHandler(todos service.TodoService, logger *slog.Logger) *TodoHandler {
	if todos == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("todo service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoHandler{
		todos:  todos,
		logger: logger.With(slog.String("component", "todo_handler")),
	}
}

// List handles GET /api/todos, optionally filtered by ?tag_id=.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tagID, err := queryUUID(r, "tag_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	todos, err := h.todos.List(r.Context(), userID, tagID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list todos")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, todosToResponse(todos))
}

// Create handles POST /api/todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	todo, err := h.todos.Create(r.Context(), userID, service.CreateTodoRequest{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		IsDaily:     req.IsDaily,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create todo")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, todoToResponse(todo))
}

// Update handles PUT /api/todos/{id}.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	todo, err := h.todos.Update(r.Context(), userID, id, service.UpdateTodoRequest{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		ClearDueAt:  req.ClearDueAt,
		IsDaily:     req.IsDaily,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update todo")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
}

// Complete handles POST /api/todos/{id}/complete.
func (h *TodoHandler) Complete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req CompleteTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	todo, err := h.todos.SetCompleted(r.Context(), userID, id, *req.Completed)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update todo")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
}

// Delete handles DELETE /api/todos/{id}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.todos.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *TodoHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tags, err := h.todos.ListTags(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tags")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tagsToResponse(tags))
}

// CreateTag handles POST /api/tags.
func (h *TodoHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateTagRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tag, err := h.todos.CreateTag(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create tag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, tagToResponse(tag))
}

// UpdateTag handles PUT /api/tags/{id}.
func (h *TodoHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateTagRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tag, err := h.todos.UpdateTag(r.Context(), userID, id, service.UpdateTagRequest{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update tag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tagToResponse(tag))
}

// DeleteTag handles DELETE /api/tags/{id}.
func (h *TodoHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if err := h.todos.DeleteTag(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
