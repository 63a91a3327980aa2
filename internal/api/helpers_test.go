package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/middleware"
	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestJWT(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   testSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 60 * 24,
		BcryptCost:                  4,
	})
	require.NoError(t, err)
	return svc
}

// testServer wires every handler to mocks or in-memory services.
type testServer struct {
	t       *testing.T
	handler http.Handler
	jwt     auth.JWTService
	users   *mockUserService
	reviews *mockReviewService
	queries *mockItemQueryService
	stats   *mockStatsService
	mem     *memstore.DB
	sqlMock sqlmock.Sqlmock
	metrics *middleware.HTTPMetrics
	ping    error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ts := &testServer{
		t:       t,
		jwt:     newTestJWT(t),
		users:   &mockUserService{},
		reviews: &mockReviewService{},
		queries: &mockItemQueryService{},
		stats:   &mockStatsService{},
		mem:     memstore.New(),
		sqlMock: mock,
		metrics: middleware.NewHTTPMetrics(),
	}
	ts.handler = ts.build(db)
	t.Cleanup(func() {
		ts.users.AssertExpectations(t)
		ts.reviews.AssertExpectations(t)
		ts.queries.AssertExpectations(t)
		ts.stats.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) build(db *sql.DB) http.Handler {
	log := quietLogger()
	handlers := Handlers{
		Auth:      NewAuthHandler(ts.users, ts.jwt, log),
		Notebooks: NewNotebookHandler(service.NewNotebookService(db, ts.mem.Notebooks(), nil, log), log),
		Curves:    NewCurveHandler(service.NewCurveService(db, ts.mem.Curves(), log), log),
		Items:     NewItemHandler(ts.reviews, ts.queries, log),
		Stats:     NewStatsHandler(ts.stats, log),
		Todos:     NewTodoHandler(service.NewTodoService(db, ts.mem.Todos(), nil, log), log),
	}
	return NewRouter(handlers, RouterConfig{
		Logger:         log,
		Auth:           middleware.NewAuthMiddleware(ts.jwt),
		Metrics:        ts.metrics,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "metrics") }),
		Ping:           func(context.Context) error { return ts.ping },
	})
}

// token returns a valid access token for userID.
func (ts *testServer) token(userID uuid.UUID) string {
	ts.t.Helper()
	tok, err := ts.jwt.GenerateToken(context.Background(), userID)
	require.NoError(ts.t, err)
	return tok
}

// do sends a request, authenticated as userID unless it is uuid.Nil.
func (ts *testServer) do(method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+ts.token(userID))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
