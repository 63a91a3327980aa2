package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/service"
)

// StatsHandler serves review statistics and the home view.
type StatsHandler struct {
	stats  service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats service.StatsService, logger *slog.Logger) *StatsHandler {
	if stats == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("stats service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		stats:  stats,
		logger: logger.With(slog.String("component", "stats_handler")),
	}
}

// Weekly handles GET /api/stats/weekly.
func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekly, err := h.stats.Weekly(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get weekly statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, weekly)
}

// Home handles GET /api/stats/home. notebook_id and q narrow the items.
func (h *StatsHandler) Home(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notebookID, err := queryUUID(r, "notebook_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	home, err := h.stats.Home(r.Context(), userID, service.HomeRequest{
		NotebookID: notebookID,
		Query:      r.URL.Query().Get("q"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load home view")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, homeToResponse(home))
}
