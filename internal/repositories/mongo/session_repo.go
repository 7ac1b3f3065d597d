package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/repositories"
	"peerprep/interview/internal/utils"
)

// SessionRepo stores finished sessions as documents.
type SessionRepo struct {
	col *mongo.Collection
	now func() time.Time
}

// NewSessionRepo opens the collection and ensures the lookup index on the
// candidate email.
func NewSessionRepo(ctx context.Context, c *Client, collection string) (*SessionRepo, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	if collection == "" {
		collection = "interview_sessions"
	}
	r := newSessionRepo(db.Collection(collection))

	_, err = r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "candidate.email", Value: 1}, {Key: "persistedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create session index: %w", err)
	}
	return r, nil
}

func newSessionRepo(col *mongo.Collection) *SessionRepo {
	return &SessionRepo{
		col: col,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SessionRepo) Save(ctx context.Context, snapshot *models.SessionSnapshot) (string, error) {
	doc := models.PersistedSession{
		ID:              uuid.New().String(),
		SessionSnapshot: *snapshot,
		PersistedAt:     r.now(),
	}
	doc.Candidate.Email = utils.NormalizeEmail(doc.Candidate.Email)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*models.PersistedSession, error) {
	var out models.PersistedSession
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *SessionRepo) ListByEmail(ctx context.Context, email string) ([]models.PersistedSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "persistedAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"candidate.email": utils.NormalizeEmail(email)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PersistedSession{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, readpref.Primary())
}
