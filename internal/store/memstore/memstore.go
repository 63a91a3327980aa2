// Package memstore implements the store interfaces in memory for tests.
// Transactions are not modeled: WithTx returns the receiver, so writes made
// before a rollback stay visible.
package memstore

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
)

// DB holds every entity. The zero value is not usable; call New.
type DB struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*domain.User
	notebooks map[uuid.UUID]*domain.Notebook
	curves    map[uuid.UUID]*domain.ReviewCurve
	items     map[uuid.UUID]*domain.MemoryItem
	logs      []*domain.ReviewLog
	todos     map[uuid.UUID]*domain.TodoTask
	tags      map[uuid.UUID]*domain.TodoTag
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		users:     make(map[uuid.UUID]*domain.User),
		notebooks: make(map[uuid.UUID]*domain.Notebook),
		curves:    make(map[uuid.UUID]*domain.ReviewCurve),
		items:     make(map[uuid.UUID]*domain.MemoryItem),
		todos:     make(map[uuid.UUID]*domain.TodoTask),
		tags:      make(map[uuid.UUID]*domain.TodoTag),
	}
}

func (db *DB) Users() store.UserStore { return userStore{db} }
func (db *DB) Notebooks() store.NotebookStore { return notebookStore{db} }
func (db *DB) Curves() store.CurveStore { return curveStore{db} }
func (db *DB) Items() store.ItemStore { return itemStore{db} }
func (db *DB) ReviewLogs() store.ReviewLogStore { return reviewLogStore{db} }
func (db *DB) Todos() store.TodoStore { return todoStore{db} }

// Logs returns a copy of every stored review log.
func (db *DB) Logs() []*domain.ReviewLog {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*domain.ReviewLog, len(db.logs))
	for i, l := range db.logs {
		cp := *l
		out[i] = &cp
	}
	return out
}

func less(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }

// ---- users

type userStore struct{ db *DB }

func (s userStore) WithTx(*sql.Tx) store.UserStore { return s }

func (s userStore) Create(_ context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u.HashedPassword == "" {
		return domain.ErrEmptyPassword
	}
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.db.users {
		if existing.Email == u.Email {
			return store.ErrEmailExists
		}
	}
	cp := *u
	cp.Password = ""
	u.Password = ""
	s.db.users[u.ID] = &cp
	return nil
}

func (s userStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s userStore) Update(_ context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[u.ID]; !ok {
		return store.ErrUserNotFound
	}
	cp := *u
	cp.Email = strings.ToLower(cp.Email)
	cp.Password = ""
	s.db.users[u.ID] = &cp
	return nil
}

func (s userStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.db.users, id)
	return nil
}

// ---- notebooks

type notebookStore struct{ db *DB }

func (s notebookStore) WithTx(*sql.Tx) store.NotebookStore { return s }

func (s notebookStore) Create(_ context.Context, nb *domain.Notebook) error {
	if err := nb.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *nb
	s.db.notebooks[nb.ID] = &cp
	return nil
}

func (s notebookStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.Notebook, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	nb, ok := s.db.notebooks[id]
	if !ok || nb.UserID != userID {
		return nil, store.ErrNotebookNotFound
	}
	cp := *nb
	return &cp, nil
}

func (s notebookStore) List(_ context.Context, userID uuid.UUID) ([]store.NotebookWithCount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []store.NotebookWithCount{}
	for _, nb := range s.db.notebooks {
		if nb.UserID != userID {
			continue
		}
		n := 0
		for _, it := range s.db.items {
			if it.NotebookID == nb.ID && it.DeletedAt == nil {
				n++
			}
		}
		out = append(out, store.NotebookWithCount{Notebook: *nb, ItemCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s notebookStore) Update(_ context.Context, nb *domain.Notebook) error {
	if err := nb.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.notebooks[nb.ID]
	if !ok || existing.UserID != nb.UserID {
		return store.ErrNotebookNotFound
	}
	cp := *nb
	s.db.notebooks[nb.ID] = &cp
	return nil
}

func (s notebookStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	nb, ok := s.db.notebooks[id]
	if !ok || nb.UserID != userID {
		return store.ErrNotebookNotFound
	}
	delete(s.db.notebooks, id)
	for itemID, it := range s.db.items {
		if it.NotebookID == id {
			delete(s.db.items, itemID)
		}
	}
	return nil
}

// ---- curves

type curveStore struct{ db *DB }

func (s curveStore) WithTx(*sql.Tx) store.CurveStore { return s }

func cloneCurve(c *domain.ReviewCurve) *domain.ReviewCurve {
	cp := *c
	cp.Intervals = append([]int(nil), c.Intervals...)
	return &cp
}

func (s curveStore) nameTaken(userID, except uuid.UUID, name string) bool {
	for _, c := range s.db.curves {
		if c.UserID == userID && c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s curveStore) Create(_ context.Context, c *domain.ReviewCurve) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.nameTaken(c.UserID, c.ID, c.Name) {
		return store.ErrCurveNameExists
	}
	if c.IsDefault {
		for _, other := range s.db.curves {
			if other.UserID == c.UserID && other.IsDefault {
				return store.ErrDuplicate
			}
		}
	}
	s.db.curves[c.ID] = cloneCurve(c)
	return nil
}

func (s curveStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.curves[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrCurveNotFound
	}
	return cloneCurve(c), nil
}

func (s curveStore) GetDefault(_ context.Context, userID uuid.UUID) (*domain.ReviewCurve, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, c := range s.db.curves {
		if c.UserID == userID && c.IsDefault {
			return cloneCurve(c), nil
		}
	}
	return nil, store.ErrCurveNotFound
}

func (s curveStore) List(_ context.Context, userID uuid.UUID) ([]*domain.ReviewCurve, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.ReviewCurve{}
	for _, c := range s.db.curves {
		if c.UserID == userID {
			out = append(out, cloneCurve(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s curveStore) Update(_ context.Context, c *domain.ReviewCurve) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.curves[c.ID]
	if !ok || existing.UserID != c.UserID {
		return store.ErrCurveNotFound
	}
	if s.nameTaken(c.UserID, c.ID, c.Name) {
		return store.ErrCurveNameExists
	}
	cp := cloneCurve(c)
	cp.IsDefault = existing.IsDefault
	s.db.curves[c.ID] = cp
	return nil
}

func (s curveStore) SetDefault(_ context.Context, userID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	target, ok := s.db.curves[id]
	if !ok || target.UserID != userID {
		return store.ErrCurveNotFound
	}
	for _, c := range s.db.curves {
		if c.UserID == userID {
			c.IsDefault = c.ID == id
		}
	}
	return nil
}

func (s curveStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.curves[id]
	if !ok || c.UserID != userID {
		return store.ErrCurveNotFound
	}
	delete(s.db.curves, id)
	for _, it := range s.db.items {
		if it.CurveID != nil && *it.CurveID == id {
			it.CurveID = nil
		}
	}
	return nil
}

// ---- items

type itemStore struct{ db *DB }

func (s itemStore) WithTx(*sql.Tx) store.ItemStore { return s }

func cloneItem(it *domain.MemoryItem) *domain.MemoryItem {
	cp := *it
	cp.ImagePaths = append([]string{}, it.ImagePaths...)
	if it.CurveID != nil {
		id := *it.CurveID
		cp.CurveID = &id
	}
	return &cp
}

func (s itemStore) Create(_ context.Context, it *domain.MemoryItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.notebooks[it.NotebookID]; !ok {
		return store.ErrReferenceNotFound
	}
	s.db.items[it.ID] = cloneItem(it)
	return nil
}

func (s itemStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	it, ok := s.db.items[id]
	if !ok || it.UserID != userID {
		return nil, store.ErrItemNotFound
	}
	return cloneItem(it), nil
}

func (s itemStore) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	return s.GetByID(ctx, userID, id)
}

func (s itemStore) Update(_ context.Context, it *domain.MemoryItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.items[it.ID]
	if !ok || existing.UserID != it.UserID {
		return store.ErrItemNotFound
	}
	s.db.items[it.ID] = cloneItem(it)
	return nil
}

func (s itemStore) List(_ context.Context, userID uuid.UUID, f store.ItemFilter) ([]*domain.MemoryItem, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.MemoryItem{}
	for _, it := range s.db.items {
		if matches(it, userID, f) {
			out = append(out, cloneItem(it))
		}
	}
	sortItems(out)

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*domain.MemoryItem{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(it *domain.MemoryItem, userID uuid.UUID, f store.ItemFilter) bool {
	if it.UserID != userID || (it.DeletedAt != nil) != f.Deleted {
		return false
	}
	if f.NotebookID != nil && it.NotebookID != *f.NotebookID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" &&
		!strings.Contains(strings.ToLower(it.Title), q) &&
		!strings.Contains(strings.ToLower(it.Content), q) {
		return false
	}
	return len(f.Statuses) == 0 || hasStatus(f.Statuses, it.Status)
}

func (s itemStore) CountDue(_ context.Context, userID uuid.UUID, f store.ItemFilter, before time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	f = store.ItemFilter{NotebookID: f.NotebookID, Query: f.Query}
	n := 0
	for _, it := range s.db.items {
		if matches(it, userID, f) && live(it) && it.NextReviewAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func hasStatus(list []domain.ItemStatus, st domain.ItemStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

func sortItems(items []*domain.MemoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].NextReviewAt.Equal(items[j].NextReviewAt) {
			return items[i].NextReviewAt.Before(items[j].NextReviewAt)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func live(it *domain.MemoryItem) bool {
	return it.Status == domain.ItemStatusReviewing && it.DeletedAt == nil
}

func (s itemStore) ListDue(_ context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.MemoryItem, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.MemoryItem{}
	for _, it := range s.db.items {
		if it.UserID == userID && live(it) && !it.NextReviewAt.After(now) {
			out = append(out, cloneItem(it))
		}
	}
	sortItems(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s itemStore) NextReviewAfter(_ context.Context, now time.Time) (*time.Time, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var next *time.Time
	for _, it := range s.db.items {
		if !live(it) || !it.NextReviewAt.After(now) {
			continue
		}
		if next == nil || it.NextReviewAt.Before(*next) {
			t := it.NextReviewAt
			next = &t
		}
	}
	return next, nil
}

func (s itemStore) CountDueByUser(_ context.Context, now time.Time) (map[uuid.UUID]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make(map[uuid.UUID]int)
	for _, it := range s.db.items {
		if live(it) && !it.NextReviewAt.After(now) {
			out[it.UserID]++
		}
	}
	return out, nil
}

func (s itemStore) PurgeDeleted(_ context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, it := range s.db.items {
		if it.DeletedAt != nil && it.DeletedAt.Before(cutoff) {
			delete(s.db.items, id)
			n++
		}
	}
	return n, nil
}

// ---- review logs

type reviewLogStore struct{ db *DB }

func (s reviewLogStore) WithTx(*sql.Tx) store.ReviewLogStore { return s }

func (s reviewLogStore) Create(_ context.Context, l *domain.ReviewLog) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *l
	s.db.logs = append(s.db.logs, &cp)
	return nil
}

func (s reviewLogStore) ListByItem(_ context.Context, userID, itemID uuid.UUID, limit int) ([]*domain.ReviewLog, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.ReviewLog{}
	for _, l := range s.db.logs {
		if l.UserID == userID && l.ItemID == itemID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewedAt.After(out[j].ReviewedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s reviewLogStore) Count(_ context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, l := range s.db.logs {
		if l.UserID == userID && !l.ReviewedAt.Before(from) && l.ReviewedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s reviewLogStore) CountByDay(
	_ context.Context,
	userID uuid.UUID,
	from, to time.Time,
	loc *time.Location,
) (map[string]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if loc == nil {
		loc = time.UTC
	}
	out := make(map[string]int)
	for _, l := range s.db.logs {
		if l.UserID == userID && !l.ReviewedAt.Before(from) && l.ReviewedAt.Before(to) {
			out[l.ReviewedAt.In(loc).Format(domain.DayLayout)]++
		}
	}
	return out, nil
}

// ---- todos

type todoStore struct{ db *DB }

func (s todoStore) WithTx(*sql.Tx) store.TodoStore { return s }

func cloneTodo(t *domain.TodoTask) *domain.TodoTask {
	cp := *t
	cp.TagIDs = append([]uuid.UUID{}, t.TagIDs...)
	return &cp
}

func (s todoStore) checkTags(ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := s.db.tags[id]; !ok {
			return store.ErrTagNotFound
		}
	}
	return nil
}

func (s todoStore) Create(_ context.Context, t *domain.TodoTask) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.checkTags(t.TagIDs); err != nil {
		return err
	}
	s.db.todos[t.ID] = cloneTodo(t)
	return nil
}

func (s todoStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.TodoTask, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.todos[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrTodoNotFound
	}
	return cloneTodo(t), nil
}

func (s todoStore) Update(_ context.Context, t *domain.TodoTask) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.todos[t.ID]
	if !ok || existing.UserID != t.UserID {
		return store.ErrTodoNotFound
	}
	if err := s.checkTags(t.TagIDs); err != nil {
		return err
	}
	s.db.todos[t.ID] = cloneTodo(t)
	return nil
}

func (s todoStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.todos[id]
	if !ok || t.UserID != userID {
		return store.ErrTodoNotFound
	}
	delete(s.db.todos, id)
	return nil
}

func (s todoStore) List(_ context.Context, userID uuid.UUID, tagID *uuid.UUID) ([]*domain.TodoTask, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.TodoTask{}
	for _, t := range s.db.todos {
		if t.UserID != userID {
			continue
		}
		if tagID != nil && !hasTag(t.TagIDs, *tagID) {
			continue
		}
		out = append(out, cloneTodo(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func hasTag(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (s todoStore) CreateTag(_ context.Context, tag *domain.TodoTag) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.tags {
		if t.UserID == tag.UserID && strings.EqualFold(t.Name, tag.Name) {
			return store.ErrTagNameExists
		}
	}
	cp := *tag
	s.db.tags[tag.ID] = &cp
	return nil
}

func (s todoStore) ListTags(_ context.Context, userID uuid.UUID) ([]*domain.TodoTag, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.TodoTag{}
	for _, t := range s.db.tags {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return less(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s todoStore) UpdateTag(_ context.Context, tag *domain.TodoTag) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tags[tag.ID]
	if !ok || t.UserID != tag.UserID {
		return store.ErrTagNotFound
	}
	for _, other := range s.db.tags {
		if other.ID != tag.ID && other.UserID == tag.UserID && strings.EqualFold(other.Name, tag.Name) {
			return store.ErrTagNameExists
		}
	}
	t.Name = tag.Name
	t.Color = tag.Color
	return nil
}

func (s todoStore) DeleteTag(_ context.Context, userID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tags[id]
	if !ok || t.UserID != userID {
		return store.ErrTagNotFound
	}
	delete(s.db.tags, id)
	for _, todo := range s.db.todos {
		kept := todo.TagIDs[:0]
		for _, x := range todo.TagIDs {
			if x != id {
				kept = append(kept, x)
			}
		}
		todo.TagIDs = kept
	}
	return nil
}
