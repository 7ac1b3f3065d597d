package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
)

var _ repositories.SessionStore = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	end := int64(9000)
	snap := &models.SessionSnapshot{
		SessionID: "conn-1",
		Candidate: models.Candidate{Email: "A@B.com", JobRole: "frontend", Skills: []string{"react"}, YearsOfExperience: 2},
		Questions: []models.QuestionSnapshot{{
			QuestionEntry: models.QuestionEntry{
				Question: "Q1", Round: models.RoundTechnical, TimeLimit: 180, Score: 6.5,
				Answer:          models.Answer{"part one", "part two"},
				FaceExpressions: []models.FaceExpression{{ExpressionState: "sad", TimeStamp: 10}},
			},
			ExpressionSegments: map[string][]models.Segment{"sad": {{Expression: "sad", StartTime: 10, EndTime: 10}}},
		}},
		StartTime: 1000,
		EndTime:   &end,
		Status:    models.StatusCompleted,
	}

	id, err := store.Save(ctx, snap)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || got.SessionID != "conn-1" || got.Status != models.StatusCompleted {
		t.Fatalf("unexpected row %#v", got)
	}
	if got.EndTime == nil || *got.EndTime != 9000 {
		t.Fatalf("unexpected end time %v", got.EndTime)
	}
	q := got.Questions[0]
	if q.Score != 6.5 || q.Answer.Text() != "part one part two" || len(q.ExpressionSegments["sad"]) != 1 {
		t.Fatalf("questions did not round-trip: %#v", q)
	}
	if got.Candidate.Skills[0] != "react" {
		t.Fatalf("candidate did not round-trip: %#v", got.Candidate)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestStoreListByEmail(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Hour) }

	older, _ := store.Save(ctx, &models.SessionSnapshot{SessionID: "c1", Candidate: models.Candidate{Email: "a@b.com"}})
	newer, _ := store.Save(ctx, &models.SessionSnapshot{SessionID: "c2", Candidate: models.Candidate{Email: "a@b.com"}})
	_, _ = store.Save(ctx, &models.SessionSnapshot{SessionID: "c3", Candidate: models.Candidate{Email: "z@b.com"}})

	list, err := store.ListByEmail(ctx, "A@b.com ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer || list[1].ID != older {
		t.Fatalf("expected newest first, got %#v", list)
	}

	empty, err := store.ListByEmail(ctx, "nobody@b.com")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no rows, got %#v, %v", empty, err)
	}
}
