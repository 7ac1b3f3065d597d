package repositories

import (
	"context"
	"errors"

	"peerprep/interview/internal/models"
)

var ErrNotFound = errors.New("persisted session not found")

// SessionStore is the durable home of finished sessions.
type SessionStore interface {
	// Save stores a copy of snapshot and returns its persisted id.
	Save(ctx context.Context, snapshot *models.SessionSnapshot) (string, error)
	GetByID(ctx context.Context, id string) (*models.PersistedSession, error)
	// ListByEmail returns the candidate's sessions, newest first.
	ListByEmail(ctx context.Context, email string) ([]models.PersistedSession, error)
	Ping(ctx context.Context) error
}
