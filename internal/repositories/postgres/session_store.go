package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/utils"
)

// sessionRow is one persisted session. Candidate and questions are kept as
// JSON columns; only the lookup fields get their own columns.
type sessionRow struct {
	ID                   string                    `gorm:"primaryKey;size:64"`
	SessionID            string                    `gorm:"size:64;index"`
	CandidateEmail       string                    `gorm:"size:320;index"`
	Candidate            models.Candidate          `gorm:"serializer:json;type:text"`
	Questions            []models.QuestionSnapshot `gorm:"serializer:json;type:text"`
	StartTime            int64
	EndTime              *int64
	Status               string `gorm:"size:16"`
	CurrentQuestionIndex int
	PersistedAt          time.Time `gorm:"index"`
}

func (sessionRow) TableName() string { return "interview_sessions" }

func (r *sessionRow) toModel() models.PersistedSession {
	return models.PersistedSession{
		ID: r.ID,
		SessionSnapshot: models.SessionSnapshot{
			SessionID:            r.SessionID,
			Candidate:            r.Candidate,
			Questions:            r.Questions,
			StartTime:            r.StartTime,
			EndTime:              r.EndTime,
			Status:               models.Status(r.Status),
			CurrentQuestionIndex: r.CurrentQuestionIndex,
		},
		PersistedAt: r.PersistedAt,
	}
}

// Open connects to PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore migrates the sessions table and returns a store over db.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Save(ctx context.Context, snapshot *models.SessionSnapshot) (string, error) {
	row := sessionRow{
		ID:                   uuid.New().String(),
		SessionID:            snapshot.SessionID,
		CandidateEmail:       utils.NormalizeEmail(snapshot.Candidate.Email),
		Candidate:            snapshot.Candidate,
		Questions:            snapshot.Questions,
		StartTime:            snapshot.StartTime,
		EndTime:              snapshot.EndTime,
		Status:               string(snapshot.Status),
		CurrentQuestionIndex: snapshot.CurrentQuestionIndex,
		PersistedAt:          s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.PersistedSession, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	out := row.toModel()
	return &out, nil
}

func (s *Store) ListByEmail(ctx context.Context, email string) ([]models.PersistedSession, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("candidate_email = ?", utils.NormalizeEmail(email)).
		Order("persisted_at DESC").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.PersistedSession, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
