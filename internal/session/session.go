package session

import (
	"sync"

	"peerprep/interview/internal/models"
)

// Session owns one interview record. All mutation goes through its lock so
// commands and telemetry for one connection are applied in a single order.
type Session struct {
	mu       sync.Mutex
	record   models.Session
	segments []map[string][]models.Segment
	now      func() int64
	lastTick int64
}

func newSession(id string, candidate models.Candidate, now func() int64) *Session {
	s := &Session{now: now}
	start := s.tick()
	s.record = models.Session{
		SessionID: id,
		Candidate: candidate,
		Questions: []models.QuestionEntry{},
		StartTime: start,
		Status:    models.StatusPending,
	}
	return s
}

func (s *Session) ID() string {
	return s.record.SessionID
}

// tick returns the clock value, never earlier than a previously issued one.
// Caller holds s.mu (or owns s exclusively).
func (s *Session) tick() int64 {
	t := s.now()
	if t < s.lastTick {
		t = s.lastTick
	}
	s.lastTick = t
	return t
}

// QuestionPatch lists the fields updateQuestionData may overwrite. Nil
// fields are left untouched.
type QuestionPatch struct {
	Answer *models.Answer
	Code   *[]models.CodeAttempt
}

func PatchFromRequest(req *models.UpdateQuestionRequest) QuestionPatch {
	return QuestionPatch{Answer: req.Answer, Code: req.Code}
}

// NewQuestion closes the open entry, if any, and appends a new one. It
// returns the new entry's questionAnswerIndex.
func (s *Session) NewQuestion(req models.NewQuestionRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record.Status == models.StatusCompleted {
		return 0, ErrSessionCompleted
	}

	t := s.tick()
	s.closeLastOpenEntry(t)

	index := len(s.record.Questions)
	s.record.Questions = append(s.record.Questions, models.QuestionEntry{
		Question:            req.Question,
		Answer:              append(models.Answer(nil), req.Answer...),
		Code:                append([]models.CodeAttempt(nil), req.Code...),
		TimeLimit:           req.TimeLimit,
		Round:               req.Round,
		StartTime:           t,
		FaceExpressions:     []models.FaceExpression{},
		GazeTracking:        []models.GazePoint{},
		QuestionAnswerIndex: index,
	})
	if s.record.Status == models.StatusPending {
		s.record.Status = models.StatusActive
	}
	return index, nil
}

// closeLastOpenEntry stamps endTime on the last entry when it is still open.
// Only the last entry can be open, so nothing earlier is inspected. Caller
// holds s.mu.
func (s *Session) closeLastOpenEntry(t int64) {
	n := len(s.record.Questions)
	if n == 0 {
		return
	}
	last := &s.record.Questions[n-1]
	if !last.Open() {
		return
	}
	end := t
	last.EndTime = &end
}

func (s *Session) entry(index int) (*models.QuestionEntry, error) {
	if index < 0 || index >= len(s.record.Questions) {
		return nil, ErrQuestionIndexOutOfRange
	}
	return &s.record.Questions[index], nil
}

// UpdateQuestion shallow-overwrites the patched fields of questions[index].
func (s *Session) UpdateQuestion(index int, patch QuestionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record.Status == models.StatusCompleted {
		return ErrSessionCompleted
	}
	q, err := s.entry(index)
	if err != nil {
		return err
	}
	if patch.Answer != nil {
		q.Answer = append(models.Answer(nil), (*patch.Answer)...)
	}
	if patch.Code != nil {
		q.Code = append([]models.CodeAttempt(nil), (*patch.Code)...)
	}
	return nil
}

// RecordExpression appends a sample to an open entry. Samples are kept in
// arrival order.
func (s *Session) RecordExpression(index int, sample models.FaceExpression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.telemetryTarget(index)
	if err != nil {
		return err
	}
	q.FaceExpressions = append(q.FaceExpressions, sample)
	return nil
}

func (s *Session) RecordGaze(index int, point models.GazePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.telemetryTarget(index)
	if err != nil {
		return err
	}
	q.GazeTracking = append(q.GazeTracking, point)
	return nil
}

func (s *Session) telemetryTarget(index int) (*models.QuestionEntry, error) {
	if s.record.Status == models.StatusCompleted {
		return nil, ErrSessionCompleted
	}
	q, err := s.entry(index)
	if err != nil {
		return nil, err
	}
	if !q.Open() {
		return nil, ErrQuestionClosed
	}
	return q, nil
}

// MergeEvaluation applies feedback[i] to questions[i]. Extra feedback is
// ignored and questions without feedback keep their values. It stays
// allowed after completion since evaluation usually lands afterwards.
// Returns the number of entries updated.
func (s *Session) MergeEvaluation(feedback []models.Feedback) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(feedback)
	if len(s.record.Questions) < n {
		n = len(s.record.Questions)
	}
	for i := 0; i < n; i++ {
		q := &s.record.Questions[i]
		q.AnswerReview = feedback[i].Feedback
		q.Score = feedback[i].Score
		q.CorrectAnswer = feedback[i].CorrectAnswer
	}
	return n
}

// Complete closes the open entry, marks the session completed and derives
// expression segments once. It can succeed only once.
func (s *Session) Complete(agg *Aggregator) (*models.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.record.Status == models.StatusCompleted:
		return nil, ErrSessionCompleted
	case len(s.record.Questions) == 0:
		return nil, ErrNoQuestions
	}

	t := s.tick()
	s.closeLastOpenEntry(t)
	end := t
	s.record.EndTime = &end
	s.record.Status = models.StatusCompleted

	s.segments = make([]map[string][]models.Segment, len(s.record.Questions))
	for i, q := range s.record.Questions {
		if len(q.FaceExpressions) == 0 {
			continue
		}
		s.segments[i] = agg.Segments(q.FaceExpressions)
	}

	return Export(&s.record, s.segments), nil
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Status == models.StatusCompleted
}

// Snapshot exports the current state. Segments are present only after
// completion.
func (s *Session) Snapshot() *models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Export(&s.record, s.segments)
}
