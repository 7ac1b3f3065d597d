package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/session"
	"peerprep/interview/internal/utils"
)

// SnapshotSource exposes the live sessions.
type SnapshotSource interface {
	Snapshot(connectionID string) (*models.SessionSnapshot, error)
}

// SessionArchive persists snapshots and reads them back.
type SessionArchive interface {
	Persist(ctx context.Context, snapshot *models.SessionSnapshot) (string, error)
	Get(ctx context.Context, id string) (*models.PersistedSession, error)
	ListByEmail(ctx context.Context, email string) ([]models.PersistedSession, error)
}

// PersistResponse is the body returned by POST /api/v1/sessions.
type PersistResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

type SessionHandler struct {
	live    SnapshotSource
	archive SessionArchive
	logger  *zap.Logger
}

func NewSessionHandler(live SnapshotSource, archive SessionArchive, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{live: live, archive: archive, logger: logger}
}

// PersistSessionHandler stores the live session of a connection and
// returns the persisted id.
func (h *SessionHandler) PersistSessionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.PersistSessionRequest](r)

	snap, err := h.live.Snapshot(req.SocketID)
	if err != nil {
		h.notFound(w, err)
		return
	}

	id, err := h.archive.Persist(r.Context(), snap)
	if err != nil {
		h.logger.Error("failed to persist session",
			zap.String("connection_id", req.SocketID),
			zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    models.CodePersistenceFailure,
			Message: "failed to persist session",
		})
		return
	}

	h.logger.Info("session persisted",
		zap.String("connection_id", req.SocketID),
		zap.String("persisted_id", id))
	utils.JSON(w, http.StatusOK, PersistResponse{
		Success:  true,
		Response: id,
		Message:  "session persisted",
	})
}

// LiveSessionHandler returns the in-memory record for a connection.
func (h *SessionHandler) LiveSessionHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.live.Snapshot(chi.URLParam(r, "socketId"))
	if err != nil {
		h.notFound(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	persisted, err := h.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, persisted)
}

func (h *SessionHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	email := utils.NormalizeEmail(chi.URLParam(r, "email"))
	if email == "" {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    models.CodeMalformedInput,
			Message: "email is required",
		})
		return
	}
	sessions, err := h.archive.ListByEmail(r.Context(), email)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.PersistedSession{}
	}
	utils.JSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) notFound(w http.ResponseWriter, err error) {
	utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
		Code:    session.CodeFor(err),
		Message: session.MessageFor(err),
	})
}

func (h *SessionHandler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    models.CodeSessionNotFound,
			Message: err.Error(),
		})
		return
	}
	h.logger.Error("session store query failed", zap.Error(err))
	utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Code:    models.CodePersistenceFailure,
		Message: "failed to read sessions",
	})
}
