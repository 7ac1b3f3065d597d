package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"peerprep/interview/internal/models"
)

const ChannelInterviewCompleted = "interview_completed"

// InterviewCompleted is published after a finished session has been
// stored.
type InterviewCompleted struct {
	SessionID      string  `json:"sessionId"`
	PersistedID    string  `json:"persistedId"`
	CandidateEmail string  `json:"candidateEmail"`
	JobRole        string  `json:"jobRole"`
	QuestionCount  int     `json:"questionCount"`
	AverageScore   float64 `json:"averageScore"`
	StartTime      int64   `json:"startTime"`
	EndTime        *int64  `json:"endTime"`
}

func NewInterviewCompleted(persistedID string, snap *models.SessionSnapshot) InterviewCompleted {
	return InterviewCompleted{
		SessionID:      snap.SessionID,
		PersistedID:    persistedID,
		CandidateEmail: snap.Candidate.Email,
		JobRole:        snap.Candidate.JobRole,
		QuestionCount:  len(snap.Questions),
		AverageScore:   snap.AverageScore(),
		StartTime:      snap.StartTime,
		EndTime:        snap.EndTime,
	}
}

// Publisher sends domain events over Redis pub/sub. A Publisher built
// without an address drops every event.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(redisAddr string, logger *zap.Logger) *Publisher {
	p := &Publisher{logger: logger}
	if redisAddr != "" {
		p.rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
	}
	return p
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.rdb != nil
}

func (p *Publisher) PublishInterviewCompleted(ctx context.Context, event InterviewCompleted) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ChannelInterviewCompleted, err)
	}
	if err := p.rdb.Publish(ctx, ChannelInterviewCompleted, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelInterviewCompleted, err)
	}
	p.logger.Info("published interview_completed",
		zap.String("connection_id", event.SessionID),
		zap.String("persisted_id", event.PersistedID))
	return nil
}

func (p *Publisher) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.rdb.Ping(ctx).Err()
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.rdb.Close()
}
