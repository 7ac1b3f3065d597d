package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/utils"
)

// Store keeps persisted sessions in process memory. Used as the default
// backend and in tests.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]models.PersistedSession
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]models.PersistedSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Save(_ context.Context, snapshot *models.SessionSnapshot) (string, error) {
	id := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = models.PersistedSession{
		ID:              id,
		SessionSnapshot: *snapshot,
		PersistedAt:     s.now(),
	}
	return id, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*models.PersistedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &ps, nil
}

func (s *Store) ListByEmail(_ context.Context, email string) ([]models.PersistedSession, error) {
	email = utils.NormalizeEmail(email)
	s.mu.RLock()
	out := []models.PersistedSession{}
	for _, ps := range s.sessions {
		if utils.NormalizeEmail(ps.Candidate.Email) == email {
			out = append(out, ps)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PersistedAt.Equal(out[j].PersistedAt) {
			return out[i].PersistedAt.After(out[j].PersistedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }
