package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"peerprep/interview/internal/events"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
)

var ErrPersistence = errors.New("failed to persist session")

const defaultMaxPending = 256

// EventPublisher announces archived sessions.
type EventPublisher interface {
	PublishInterviewCompleted(ctx context.Context, event events.InterviewCompleted) error
}

// ArchiveService hands finished sessions to the store. Snapshots the store
// rejects are queued and retried by the persist retry job.
type ArchiveService struct {
	store     repositories.SessionStore
	publisher EventPublisher
	logger    *zap.Logger

	mu         sync.Mutex
	pending    []*models.SessionSnapshot
	maxPending int
}

func NewArchiveService(store repositories.SessionStore, publisher EventPublisher, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxPending: defaultMaxPending,
	}
}

// Archive stores snapshot and publishes interview_completed. On store
// failure the snapshot is queued for retry and ErrPersistence is returned.
func (s *ArchiveService) Archive(ctx context.Context, snapshot *models.SessionSnapshot) (string, error) {
	id, err := s.store.Save(ctx, snapshot)
	if err != nil {
		s.enqueue(snapshot)
		s.logger.Error("failed to persist session, queued for retry",
			zap.String("connection_id", snapshot.SessionID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.announce(ctx, id, snapshot)
	return id, nil
}

// Persist stores snapshot for a caller that is waiting on the result.
// Failures are returned and not queued; the caller decides whether to
// retry. A queued copy of the same session is discarded once stored.
func (s *ArchiveService) Persist(ctx context.Context, snapshot *models.SessionSnapshot) (string, error) {
	id, err := s.store.Save(ctx, snapshot)
	if err != nil {
		s.logger.Error("failed to persist session",
			zap.String("connection_id", snapshot.SessionID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.forget(snapshot.SessionID)
	s.announce(ctx, id, snapshot)
	return id, nil
}

func (s *ArchiveService) forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, snap := range s.pending {
		if snap.SessionID != sessionID {
			kept = append(kept, snap)
		}
	}
	s.pending = kept
}

func (s *ArchiveService) announce(ctx context.Context, id string, snapshot *models.SessionSnapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInterviewCompleted(ctx, events.NewInterviewCompleted(id, snapshot)); err != nil {
		s.logger.Warn("failed to publish interview_completed",
			zap.String("connection_id", snapshot.SessionID),
			zap.String("persisted_id", id),
			zap.Error(err))
	}
}

func (s *ArchiveService) enqueue(snapshot *models.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.maxPending {
		dropped := s.pending[0]
		s.pending = s.pending[1:]
		s.logger.Warn("retry queue full, dropping oldest session",
			zap.String("connection_id", dropped.SessionID))
	}
	s.pending = append(s.pending, snapshot)
}

func (s *ArchiveService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RetryPending tries every queued snapshot once. Snapshots that fail again
// stay queued. Returns how many were stored.
func (s *ArchiveService) RetryPending(ctx context.Context) int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	stored := 0
	var failed []*models.SessionSnapshot
	for _, snap := range batch {
		if ctx.Err() != nil {
			failed = append(failed, snap)
			continue
		}
		id, err := s.store.Save(ctx, snap)
		if err != nil {
			failed = append(failed, snap)
			continue
		}
		stored++
		s.announce(ctx, id, snap)
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.pending = append(failed, s.pending...)
		if over := len(s.pending) - s.maxPending; over > 0 {
			s.pending = s.pending[over:]
		}
		s.mu.Unlock()
	}
	return stored
}

func (s *ArchiveService) Get(ctx context.Context, id string) (*models.PersistedSession, error) {
	return s.store.GetByID(ctx, id)
}

func (s *ArchiveService) ListByEmail(ctx context.Context, email string) ([]models.PersistedSession, error) {
	return s.store.ListByEmail(ctx, email)
}

func (s *ArchiveService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
