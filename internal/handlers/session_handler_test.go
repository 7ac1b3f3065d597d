package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/repositories/memory"
	"peerprep/interview/internal/session"
)

type liveStub map[string]*models.SessionSnapshot

func (l liveStub) Snapshot(id string) (*models.SessionSnapshot, error) {
	if snap, ok := l[id]; ok {
		return snap, nil
	}
	return nil, session.ErrSessionNotFound
}

// storeArchive adapts a SessionStore to SessionArchive.
type storeArchive struct {
	repositories.SessionStore
	failSave bool
}

func (a *storeArchive) Persist(ctx context.Context, snap *models.SessionSnapshot) (string, error) {
	if a.failSave {
		return "", errors.New("store unavailable")
	}
	return a.Save(ctx, snap)
}

func (a *storeArchive) Get(ctx context.Context, id string) (*models.PersistedSession, error) {
	return a.GetByID(ctx, id)
}

func sessionRouter(live SnapshotSource, archive SessionArchive) http.Handler {
	h := NewSessionHandler(live, archive, zap.NewNop())
	r := chi.NewRouter()
	r.With(middleware.ValidateRequest[*models.PersistSessionRequest]()).Post("/api/v1/sessions", h.PersistSessionHandler)
	r.Get("/api/v1/sessions/data/{socketId}", h.LiveSessionHandler)
	r.Get("/api/v1/sessions/all/{email}", h.ListSessionsHandler)
	r.Get("/api/v1/sessions/{id}", h.GetSessionHandler)
	return r
}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestPersistSessionRoundTrip(t *testing.T) {
	live := liveStub{"conn-1": {SessionID: "conn-1", Candidate: models.Candidate{Email: "a@b.com"}, Status: models.StatusCompleted}}
	archive := &storeArchive{SessionStore: memory.NewStore()}
	router := sessionRouter(live, archive)

	rec := do(router, http.MethodPost, "/api/v1/sessions", `{"socketId":"conn-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PersistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.Response)

	rec = do(router, http.MethodGet, "/api/v1/sessions/"+resp.Response, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var persisted models.PersistedSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &persisted))
	assert.Equal(t, resp.Response, persisted.ID)
	assert.Equal(t, "conn-1", persisted.SessionID)

	rec = do(router, http.MethodGet, "/api/v1/sessions/all/A@B.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PersistedSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestPersistSessionErrors(t *testing.T) {
	live := liveStub{"conn-1": {SessionID: "conn-1"}}

	tests := []struct {
		name    string
		archive *storeArchive
		body    string
		status  int
		code    string
	}{
		{"missing socket id", &storeArchive{SessionStore: memory.NewStore()}, `{}`, http.StatusBadRequest, models.CodeMalformedInput},
		{"unknown connection", &storeArchive{SessionStore: memory.NewStore()}, `{"socketId":"ghost"}`, http.StatusNotFound, models.CodeSessionNotFound},
		{"store failure", &storeArchive{SessionStore: memory.NewStore(), failSave: true}, `{"socketId":"conn-1"}`, http.StatusInternalServerError, models.CodePersistenceFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(sessionRouter(live, tt.archive), http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestLiveSessionHandler(t *testing.T) {
	live := liveStub{"conn-1": {SessionID: "conn-1", Status: models.StatusActive}}
	router := sessionRouter(live, &storeArchive{SessionStore: memory.NewStore()})

	rec := do(router, http.MethodGet, "/api/v1/sessions/data/conn-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.StatusActive, snap.Status)

	rec = do(router, http.MethodGet, "/api/v1/sessions/data/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	router := sessionRouter(liveStub{}, &storeArchive{SessionStore: memory.NewStore()})
	rec := do(router, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsEmpty(t *testing.T) {
	router := sessionRouter(liveStub{}, &storeArchive{SessionStore: memory.NewStore()})
	rec := do(router, http.MethodGet, "/api/v1/sessions/all/nobody@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
