package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for register and login.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	// ExpiresAt is RFC 3339.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// UserResponse is the account as shown to its owner.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateEmailRequest changes the account email.
type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest changes the account password.
type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// CreateNotebookRequest defines the payload for creating a notebook.
type CreateNotebookRequest struct {
	Name  string `json:"name"  validate:"required,max=100"`
	Color *int64 `json:"color"`
}

// UpdateNotebookRequest renames and/or recolors a notebook.
type UpdateNotebookRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=100"`
	Color *int64  `json:"color"`
}

// NotebookResponse represents a notebook. ItemCount is only set in lists.
type NotebookResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     int64     `json:"color"`
	ItemCount *int      `json:"item_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCurveRequest defines the payload for creating a review curve.
// Intervals are minutes.
type CreateCurveRequest struct {
	Name        string `json:"name"         validate:"required,max=50"`
	Intervals   []int  `json:"intervals"    validate:"required,min=1,max=64,dive,gt=0"`
	MakeDefault bool   `json:"make_default"`
}

// UpdateCurveRequest changes a curve's name and/or intervals.
type UpdateCurveRequest struct {
	Name      *string `json:"name"      validate:"omitempty,min=1,max=50"`
	Intervals []int   `json:"intervals" validate:"omitempty,min=1,max=64,dive,gt=0"`
}

// CurveResponse represents a review curve.
type CurveResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Intervals []int     `json:"intervals"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItemRequest defines the payload for adding a memory item.
type CreateItemRequest struct {
	NotebookID uuid.UUID  `json:"notebook_id" validate:"required"`
	CurveID    *uuid.UUID `json:"curve_id"`
	Title      string     `json:"title"       validate:"required,max=200"`
	Content    string     `json:"content"`
	ImagePaths []string   `json:"image_paths" validate:"max=20,dive,required"`
}

// UpdateItemRequest edits a memory item. Absent fields are unchanged.
type UpdateItemRequest struct {
	NotebookID *uuid.UUID `json:"notebook_id"`
	CurveID    *uuid.UUID `json:"curve_id"`
	Title      *string    `json:"title"       validate:"omitempty,min=1,max=200"`
	Content    *string    `json:"content"`
	ImagePaths *[]string  `json:"image_paths" validate:"omitempty,max=20,dive,required"`
}

// PostponeRequest defines the payload for postponing a review.
type PostponeRequest struct {
	Minutes int `json:"minutes" validate:"required,gt=0"`
}

// ItemResponse represents a memory item.
type ItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	NotebookID   uuid.UUID  `json:"notebook_id"`
	CurveID      *uuid.UUID `json:"curve_id,omitempty"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ImagePaths   []string   `json:"image_paths"`
	Status       string     `json:"status"`
	StageIndex   int        `json:"stage_index"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
	LastReviewAt *time.Time `json:"last_review_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// ReviewLogResponse represents one review of an item.
type ReviewLogResponse struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	Action     string    `json:"action"`
	ReviewedAt time.Time `json:"reviewed_at"`
	PlannedAt  time.Time `json:"planned_at"`
}

// HomeResponse is the home screen: items bucketed by when they fall due.
// Truncated means the lists were cut; the counts still cover every item.
type HomeResponse struct {
	Overdue      []ItemResponse        `json:"overdue"`
	Today        []ItemResponse        `json:"today"`
	Upcoming     []ItemResponse        `json:"upcoming"`
	Paused       []ItemResponse        `json:"paused"`
	Completed    []ItemResponse        `json:"completed"`
	OverdueCount int                   `json:"overdue_count"`
	TodayCount   int                   `json:"today_count"`
	Truncated    bool                  `json:"truncated"`
	Progress     service.DailyProgress `json:"progress"`
}

// CreateTodoRequest defines the payload for creating a todo.
type CreateTodoRequest struct {
	Title       string      `json:"title"       validate:"required,max=200"`
	Description string      `json:"description" validate:"max=2000"`
	DueAt       *time.Time  `json:"due_at"`
	IsDaily     bool        `json:"is_daily"`
	TagIDs      []uuid.UUID `json:"tag_ids"     validate:"max=50"`
}

// UpdateTodoRequest edits a todo. A null due_at leaves it unchanged; use
// clear_due_at to remove it.
type UpdateTodoRequest struct {
	Title       *string      `json:"title"        validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description"  validate:"omitempty,max=2000"`
	DueAt       *time.Time   `json:"due_at"`
	ClearDueAt  bool         `json:"clear_due_at"`
	IsDaily     *bool        `json:"is_daily"`
	TagIDs      *[]uuid.UUID `json:"tag_ids"      validate:"omitempty,max=50"`
}

// CompleteTodoRequest marks a todo done or not done.
type CompleteTodoRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// TodoResponse represents a todo. Completed reflects today for daily todos.
type TodoResponse struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	DueAt            *time.Time  `json:"due_at,omitempty"`
	IsDaily          bool        `json:"is_daily"`
	Completed        bool        `json:"completed"`
	LastCompletedDay string      `json:"last_completed_day,omitempty"`
	TagIDs           []uuid.UUID `json:"tag_ids"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// CreateTagRequest defines the payload for creating a todo tag.
type CreateTagRequest struct {
	Name  string `json:"name"  validate:"required,max=50"`
	Color int64  `json:"color"`
}

// UpdateTagRequest renames or recolors a tag. Omitted fields are unchanged.
type UpdateTagRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=50"`
	Color *int64  `json:"color"`
}

// TagResponse represents a todo tag.
type TagResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     int64     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func notebookToResponse(nb *domain.Notebook) NotebookResponse {
	return NotebookResponse{
		ID:        nb.ID,
		Name:      nb.Name,
		Color:     nb.Color,
		CreatedAt: nb.CreatedAt,
		UpdatedAt: nb.UpdatedAt,
	}
}

func notebooksToResponse(nbs []store.NotebookWithCount) []NotebookResponse {
	out := make([]NotebookResponse, 0, len(nbs))
	for i := range nbs {
		resp := notebookToResponse(&nbs[i].Notebook)
		count := nbs[i].ItemCount
		resp.ItemCount = &count
		out = append(out, resp)
	}
	return out
}

func curveToResponse(c *domain.ReviewCurve) CurveResponse {
	return CurveResponse{
		ID:        c.ID,
		Name:      c.Name,
		Intervals: c.Intervals,
		IsDefault: c.IsDefault,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func curvesToResponse(curves []*domain.ReviewCurve) []CurveResponse {
	out := make([]CurveResponse, 0, len(curves))
	for _, c := range curves {
		out = append(out, curveToResponse(c))
	}
	return out
}

// itemToResponse omits the next review time of items that have none: paused
// and completed items carry a far-future placeholder.
func itemToResponse(it *domain.MemoryItem) ItemResponse {
	resp := ItemResponse{
		ID:           it.ID,
		NotebookID:   it.NotebookID,
		CurveID:      it.CurveID,
		Title:        it.Title,
		Content:      it.Content,
		ImagePaths:   it.ImagePaths,
		Status:       string(it.Status),
		StageIndex:   it.StageIndex,
		LastReviewAt: it.LastReviewAt,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
		DeletedAt:    it.DeletedAt,
	}
	if resp.ImagePaths == nil {
		resp.ImagePaths = []string{}
	}
	if it.Status == domain.ItemStatusReviewing || it.Status == domain.ItemStatusNew {
		next := it.NextReviewAt
		resp.NextReviewAt = &next
	}
	return resp
}

func itemsToResponse(items []*domain.MemoryItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemToResponse(it))
	}
	return out
}

func reviewLogsToResponse(logs []*domain.ReviewLog) []ReviewLogResponse {
	out := make([]ReviewLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, ReviewLogResponse{
			ID:         l.ID,
			ItemID:     l.ItemID,
			Action:     string(l.Action),
			ReviewedAt: l.ReviewedAt,
			PlannedAt:  l.PlannedAt,
		})
	}
	return out
}

func homeToResponse(h *service.HomeView) HomeResponse {
	return HomeResponse{
		Overdue:      itemsToResponse(h.Overdue),
		Today:        itemsToResponse(h.Today),
		Upcoming:     itemsToResponse(h.Upcoming),
		Paused:       itemsToResponse(h.Paused),
		Completed:    itemsToResponse(h.Completed),
		OverdueCount: h.OverdueCount,
		TodayCount:   h.TodayCount,
		Truncated:    h.Truncated,
		Progress:     h.Progress,
	}
}

func todoToResponse(t *domain.TodoTask) TodoResponse {
	resp := TodoResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		DueAt:            t.DueAt,
		IsDaily:          t.IsDaily,
		Completed:        t.IsCompleted,
		LastCompletedDay: t.LastCompletedDay,
		TagIDs:           t.TagIDs,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if resp.TagIDs == nil {
		resp.TagIDs = []uuid.UUID{}
	}
	return resp
}

func todosToResponse(todos []*domain.TodoTask) []TodoResponse {
	out := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, todoToResponse(t))
	}
	return out
}

func tagToResponse(t *domain.TodoTag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, CreatedAt: t.CreatedAt}
}

func tagsToResponse(tags []*domain.TodoTag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagToResponse(t))
	}
	return out
}
