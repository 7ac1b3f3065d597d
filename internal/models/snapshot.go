package models

import "time"

// Segment is a contiguous interval during which one expression label held.
type Segment struct {
	Expression string `json:"expression" bson:"expression"`
	StartTime  int64  `json:"startTime" bson:"startTime"`
	EndTime    int64  `json:"endTime" bson:"endTime"`
}

type QuestionSnapshot struct {
	QuestionEntry `bson:",inline"`

	// derived at completion; empty while the interview is running
	ExpressionSegments map[string][]Segment `json:"expressionSegments,omitempty" bson:"expressionSegments,omitempty"`
}

// SessionSnapshot is the serialisable, read-only projection of a session.
type SessionSnapshot struct {
	SessionID            string             `json:"sessionId" bson:"sessionId"`
	Candidate            Candidate          `json:"candidate" bson:"candidate"`
	Questions            []QuestionSnapshot `json:"questions" bson:"questions"`
	StartTime            int64              `json:"startTime" bson:"startTime"`
	EndTime              *int64             `json:"endTime" bson:"endTime"`
	Status               Status             `json:"status" bson:"status"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex" bson:"currentQuestionIndex"`
}

// AverageScore is the mean score over all questions, 0 when there are none.
func (s *SessionSnapshot) AverageScore() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	var total float64
	for _, q := range s.Questions {
		total += float64(q.Score)
	}
	return total / float64(len(s.Questions))
}

// PersistedSession is the durable copy handed to the document store.
type PersistedSession struct {
	ID              string    `json:"id" bson:"_id"`
	SessionSnapshot `bson:",inline"`
	PersistedAt     time.Time `json:"persistedAt" bson:"persistedAt"`
}
