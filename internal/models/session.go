package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Round string

const (
	RoundAptitude     Round = "aptitude"
	RoundTechnical    Round = "technical"
	RoundBehavioral   Round = "behavioral"
	RoundSystemDesign Round = "system-design"
	RoundEnd          Round = "end"
)

func (r Round) Valid() bool {
	switch r {
	case RoundAptitude, RoundTechnical, RoundBehavioral, RoundSystemDesign, RoundEnd:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Candidate is set once at initial-setup and never changes afterwards.
type Candidate struct {
	Email             string   `json:"email" bson:"email"`
	Name              string   `json:"name" bson:"name"`
	JobRole           string   `json:"jobRole" bson:"jobRole"`
	Skills            []string `json:"skills" bson:"skills"`
	YearsOfExperience float64  `json:"yearsOfExperience" bson:"yearsOfExperience"`
}

type CodeAttempt struct {
	Code     string `json:"code" bson:"code"`
	Language string `json:"language" bson:"language"`
}

type FaceExpression struct {
	ExpressionState string `json:"expressionState" bson:"expressionState"`
	TimeStamp       int64  `json:"timeStamp" bson:"timeStamp"`
}

type GazePoint struct {
	TimeStamp int64   `json:"timeStamp" bson:"timeStamp"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
}

// QuestionEntry is one round of the interview. QuestionAnswerIndex is fixed
// at creation so late telemetry can be validated against a stable target.
type QuestionEntry struct {
	Question            string           `json:"question" bson:"question"`
	Answer              Answer           `json:"answer" bson:"answer"`
	Code                []CodeAttempt    `json:"code" bson:"code"`
	AnswerReview        string           `json:"answerReview" bson:"answerReview"`
	CorrectAnswer       string           `json:"correctAnswer" bson:"correctAnswer"`
	Score               Score            `json:"score" bson:"score"`
	TimeLimit           int              `json:"timeLimit" bson:"timeLimit"`
	Round               Round            `json:"round" bson:"round"`
	StartTime           int64            `json:"startTime" bson:"startTime"`
	EndTime             *int64           `json:"endTime" bson:"endTime"`
	FaceExpressions     []FaceExpression `json:"faceExpressions" bson:"faceExpressions"`
	GazeTracking        []GazePoint      `json:"gazeTracking" bson:"gazeTracking"`
	QuestionAnswerIndex int              `json:"questionAnswerIndex" bson:"questionAnswerIndex"`
}

// Open reports whether the entry has not been closed yet.
func (q *QuestionEntry) Open() bool { return q.EndTime == nil }

// Session is the authoritative in-memory record of one live interview.
type Session struct {
	SessionID string          `json:"sessionId"`
	Candidate Candidate       `json:"candidate"`
	Questions []QuestionEntry `json:"questions"`
	StartTime int64           `json:"startTime"`
	EndTime   *int64          `json:"endTime"`
	Status    Status          `json:"status"`
}

func (s *Session) CurrentQuestionIndex() int { return len(s.Questions) - 1 }

// Answer is free text or an ordered list of text fragments (speech
// transcripts arrive in pieces). A single fragment is written back as a
// plain string.
type Answer []string

func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*a = nil
		return nil
	case strings.HasPrefix(trimmed, "\""):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = Answer{}
			return nil
		}
		*a = Answer{s}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*a = Answer(parts)
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings")
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch len(a) {
	case 0:
		return []byte(`""`), nil
	case 1:
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a Answer) Text() string { return strings.Join(a, " ") }

// Score is the 0-10 evaluation result. The evaluation collaborator emits it
// either as a JSON number or as a numeric string.
type Score float64

var errScoreNotNumeric = errors.New("score must be numeric")

func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = 0
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || !finite(v) {
			return errScoreNotNumeric
		}
		*s = Score(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil || !finite(v) {
		return errScoreNotNumeric
	}
	*s = Score(v)
	return nil
}

// NaN and Inf cannot be encoded back to JSON.
func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// InRange reports whether the score honours the 0-10 contract downstream
// consumers rely on.
func (s Score) InRange() bool { return s >= 0 && s <= 10 }
