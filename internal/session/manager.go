package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

// QuestionGenerator asks the AI collaborator for the next question.
type QuestionGenerator interface {
	NextQuestion(ctx context.Context, candidate models.Candidate, round models.Round, timeLimit int, previousAnswer string) (string, error)
}

// Evaluator asks the AI collaborator to score the answered questions. The
// result is aligned positionally with questions.
type Evaluator interface {
	Evaluate(ctx context.Context, candidate models.Candidate, questions []models.QuestionSnapshot) ([]models.Feedback, error)
}

// Archiver hands a finished session to durable storage.
type Archiver interface {
	Archive(ctx context.Context, snapshot *models.SessionSnapshot) (string, error)
}

const defaultCollaboratorTimeout = 30 * time.Second

// Manager is the connection-scoped command surface. Failures are reported
// to the originating connection only; a panic in one command never reaches
// another connection.
type Manager struct {
	registry   *Registry
	outbox     Outbox
	aggregator *Aggregator
	logger     *zap.Logger

	generator QuestionGenerator
	evaluator Evaluator
	archiver  Archiver
	timeout   time.Duration

	inflight sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithQuestionGenerator(g QuestionGenerator) ManagerOption {
	return func(m *Manager) { m.generator = g }
}

func WithEvaluator(e Evaluator) ManagerOption {
	return func(m *Manager) { m.evaluator = e }
}

// WithArchiver enables hand-off of every completed session.
func WithArchiver(a Archiver) ManagerOption {
	return func(m *Manager) { m.archiver = a }
}

func WithCollaboratorTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewManager(registry *Registry, outbox Outbox, aggregator *Aggregator, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:   registry,
		outbox:     outbox,
		aggregator: aggregator,
		logger:     logger,
		timeout:    defaultCollaboratorTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait blocks until in-flight collaborator calls and archive hand-offs
// have finished.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// recoverCommand must be deferred directly by every command.
func (m *Manager) recoverCommand(connectionID, event string) {
	if r := recover(); r != nil {
		m.logger.Error("recovered panic in command handler",
			zap.String("connection_id", connectionID),
			zap.String("event", event),
			zap.Any("panic", r))
		metrics.ObserveEvent(event, metrics.OutcomeError)
		m.outbox.Report(connectionID, models.CodeGeneric, "internal error while handling "+event)
	}
}

func (m *Manager) fail(connectionID, event string, err error) {
	metrics.ObserveEvent(event, metrics.OutcomeError)
	m.outbox.Report(connectionID, CodeFor(err), MessageFor(err))
}

func (m *Manager) drop(connectionID, event string, err error, fields ...zap.Field) {
	metrics.ObserveEvent(event, metrics.OutcomeDropped)
	fields = append([]zap.Field{
		zap.String("connection_id", connectionID),
		zap.String("event", event),
		zap.Error(err),
	}, fields...)
	m.logger.Warn("dropping event", fields...)
}

func (m *Manager) ok(event string) {
	metrics.ObserveEvent(event, metrics.OutcomeOK)
}

func (m *Manager) lookup(connectionID, event string) (*Session, bool) {
	s, ok := m.registry.Get(connectionID)
	if !ok {
		m.fail(connectionID, event, fmt.Errorf("%w: %s", ErrSessionNotFound, connectionID))
	}
	return s, ok
}

// Initialize creates (or replaces) the session for the connection.
func (m *Manager) Initialize(connectionID string, candidate models.Candidate) {
	defer m.recoverCommand(connectionID, models.EventInitialSetup)

	candidate.Email = utils.NormalizeEmail(candidate.Email)
	if _, exists := m.registry.Get(connectionID); exists {
		m.logger.Warn("initial-setup replaces an existing session",
			zap.String("connection_id", connectionID))
	}
	m.registry.Create(connectionID, candidate)
	metrics.SetActiveSessions(m.registry.Len())
	m.ok(models.EventInitialSetup)
	m.logger.Info("session initialized",
		zap.String("connection_id", connectionID),
		zap.String("job_role", candidate.JobRole))
}

func (m *Manager) NewQuestion(connectionID string, req models.NewQuestionRequest) {
	const event = models.EventNewQuestion
	defer m.recoverCommand(connectionID, event)

	if err := req.Validate(); err != nil {
		m.fail(connectionID, event, err)
		return
	}
	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	index, err := s.NewQuestion(req)
	if err != nil {
		m.fail(connectionID, event, err)
		return
	}
	m.ok(event)
	m.logger.Debug("question opened",
		zap.String("connection_id", connectionID),
		zap.Int("question_index", index),
		zap.String("round", string(req.Round)))
}

// UpdateQuestionData merges the allow-listed fields. An index outside the
// question list is dropped with a warning.
func (m *Manager) UpdateQuestionData(connectionID string, req models.UpdateQuestionRequest) {
	const event = models.EventUpdateQuestion
	defer m.recoverCommand(connectionID, event)

	if err := req.Validate(); err != nil {
		m.fail(connectionID, event, err)
		return
	}
	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	index := *req.QuestionAnswerIndex
	err := s.UpdateQuestion(index, PatchFromRequest(&req))
	switch {
	case err == nil:
		m.ok(event)
	case errors.Is(err, ErrQuestionIndexOutOfRange):
		m.drop(connectionID, event, err, zap.Int("question_index", index))
	default:
		m.fail(connectionID, event, err)
	}
}

// RecordTelemetry appends an expression sample. Samples for unknown
// sessions, missing or closed questions, or completed sessions are dropped
// with a warning; they arrive at frame rate and are never reported back.
func (m *Manager) RecordTelemetry(connectionID string, ev models.FaceExpressionEvent) {
	const event = models.EventFaceExpression
	defer m.recoverCommand(connectionID, event)

	if err := ev.Validate(); err != nil {
		m.fail(connectionID, event, err)
		return
	}
	s, ok := m.registry.Get(connectionID)
	if !ok {
		m.drop(connectionID, event, ErrSessionNotFound)
		return
	}
	index := *ev.QuestionAnswerIndex
	sample := models.FaceExpression{ExpressionState: ev.ExpressionState, TimeStamp: ev.TimeStamp}
	if err := s.RecordExpression(index, sample); err != nil {
		m.drop(connectionID, event, err, zap.Int("question_index", index))
		return
	}
	m.ok(event)
}

// RecordGaze stores a gaze sample under the same rules as RecordTelemetry.
func (m *Manager) RecordGaze(connectionID string, ev models.GazeEvent) {
	const event = models.EventGazeTracking
	defer m.recoverCommand(connectionID, event)

	if err := ev.Validate(); err != nil {
		m.fail(connectionID, event, err)
		return
	}
	s, ok := m.registry.Get(connectionID)
	if !ok {
		m.drop(connectionID, event, ErrSessionNotFound)
		return
	}
	index := *ev.QuestionAnswerIndex
	point := models.GazePoint{TimeStamp: ev.TimeStamp, X: ev.X, Y: ev.Y}
	if err := s.RecordGaze(index, point); err != nil {
		m.drop(connectionID, event, err, zap.Int("question_index", index))
		return
	}
	m.ok(event)
}

// MergeEvaluation applies feedback positionally. When the session has
// already completed the refreshed analytics are sent again.
func (m *Manager) MergeEvaluation(connectionID string, feedback []models.Feedback) {
	const event = models.EventEvaluation
	defer m.recoverCommand(connectionID, event)

	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	m.applyEvaluation(s, feedback)
	m.ok(event)
}

func (m *Manager) applyEvaluation(s *Session, feedback []models.Feedback) {
	for i, fb := range feedback {
		if !fb.Score.InRange() {
			m.logger.Warn("evaluation score outside 0-10",
				zap.String("connection_id", s.ID()),
				zap.Int("question_index", i),
				zap.Float64("score", float64(fb.Score)))
		}
	}
	applied := s.MergeEvaluation(feedback)
	if applied < len(feedback) {
		m.logger.Warn("ignoring feedback beyond the question list",
			zap.String("connection_id", s.ID()),
			zap.Int("feedback", len(feedback)),
			zap.Int("applied", applied))
	}
	if s.Completed() {
		m.emitAnalytics(s.ID(), s.Snapshot())
	}
}

// Complete finalises the session, emits interview-analytics and, when an
// archiver is configured, hands the snapshot off in the background.
func (m *Manager) Complete(connectionID string) {
	const event = models.EventComplete
	defer m.recoverCommand(connectionID, event)

	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	snap, err := s.Complete(m.aggregator)
	if err != nil {
		m.fail(connectionID, event, err)
		return
	}
	m.ok(event)
	m.logger.Info("session completed",
		zap.String("connection_id", connectionID),
		zap.Int("questions", len(snap.Questions)))
	m.emitAnalytics(connectionID, snap)

	if m.archiver != nil {
		m.archive(snap)
	}
}

func (m *Manager) emitAnalytics(connectionID string, snap *models.SessionSnapshot) {
	m.outbox.Emit(connectionID, models.WSFrame{
		Type: models.EventAnalytics,
		Data: models.AnalyticsEvent{Snapshot: snap},
	})
}

func (m *Manager) archive(snap *models.SessionSnapshot) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("recovered panic during archive",
					zap.String("connection_id", snap.SessionID), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		id, err := m.archiver.Archive(ctx, snap)
		if err != nil {
			m.logger.Error("automatic archive failed",
				zap.String("connection_id", snap.SessionID), zap.Error(err))
			return
		}
		m.logger.Info("session archived",
			zap.String("connection_id", snap.SessionID), zap.String("persisted_id", id))
	}()
}

// Disconnect drops the session whether or not it completed. Unpersisted
// sessions are lost.
func (m *Manager) Disconnect(connectionID string) {
	defer m.recoverCommand(connectionID, "disconnect")

	s, ok := m.registry.Get(connectionID)
	m.registry.Remove(connectionID)
	metrics.SetActiveSessions(m.registry.Len())
	if ok && !s.Completed() {
		m.logger.Warn("session removed before completion",
			zap.String("connection_id", connectionID))
		return
	}
	m.logger.Info("session removed", zap.String("connection_id", connectionID))
}

// Snapshot returns the live session for explicit queries.
func (m *Manager) Snapshot(connectionID string) (*models.SessionSnapshot, error) {
	s, ok := m.registry.Get(connectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, connectionID)
	}
	return s.Snapshot(), nil
}

// GenerateQuestion asks the collaborator for the next question and opens
// it on the session. Round and time limit default to the interview plan
// for the next position.
func (m *Manager) GenerateQuestion(connectionID string, req models.GenerateQuestionRequest) {
	const event = models.EventGenerateQuestion
	defer m.recoverCommand(connectionID, event)

	if err := req.Validate(); err != nil {
		m.fail(connectionID, event, err)
		return
	}
	if m.generator == nil {
		m.fail(connectionID, event, &OperationError{Code: models.CodeCollaboratorFailure, Message: "question generation is not configured"})
		return
	}
	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if snap.Status == models.StatusCompleted {
		m.fail(connectionID, event, ErrSessionCompleted)
		return
	}

	round, timeLimit := models.RoundForIndex(len(snap.Questions))
	if req.Round != "" {
		round = req.Round
		timeLimit = models.DefaultTimeLimit(round)
	}
	if req.TimeLimit > 0 {
		timeLimit = req.TimeLimit
	}
	if round == models.RoundEnd {
		m.fail(connectionID, event, &OperationError{Code: models.CodeInvalidState, Message: "interview plan has no further rounds"})
		return
	}
	previous := req.PreviousAnswer
	if previous == "" && len(snap.Questions) > 0 {
		previous = snap.Questions[len(snap.Questions)-1].Answer.Text()
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer m.recoverCommand(connectionID, event)

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		start := time.Now()
		question, err := m.generator.NextQuestion(ctx, snap.Candidate, round, timeLimit, previous)
		m.observeCollaborator("next_question", start, err)
		if err != nil {
			m.fail(connectionID, event, collaboratorError("question generation", err))
			return
		}
		if !m.registry.Holds(s) {
			m.drop(connectionID, event, errors.New("session removed while question generation was in flight"))
			return
		}

		index, err := s.NewQuestion(models.NewQuestionRequest{Question: question, Round: round, TimeLimit: timeLimit})
		if err != nil {
			m.fail(connectionID, event, err)
			return
		}
		m.ok(event)
		m.outbox.Emit(connectionID, models.WSFrame{
			Type: models.EventQuestionGenerated,
			Data: models.QuestionGenerated{
				QuestionAnswerIndex: index,
				Question:            question,
				Round:               round,
				TimeLimit:           timeLimit,
			},
		})
	}()
}

// RequestEvaluation asks the collaborator to score the session's questions
// and merges the result.
func (m *Manager) RequestEvaluation(connectionID string) {
	const event = models.EventRequestEvaluation
	defer m.recoverCommand(connectionID, event)

	if m.evaluator == nil {
		m.fail(connectionID, event, &OperationError{Code: models.CodeCollaboratorFailure, Message: "evaluation is not configured"})
		return
	}
	s, ok := m.lookup(connectionID, event)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if len(snap.Questions) == 0 {
		m.fail(connectionID, event, ErrNoQuestions)
		return
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer m.recoverCommand(connectionID, event)

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		start := time.Now()
		feedback, err := m.evaluator.Evaluate(ctx, snap.Candidate, snap.Questions)
		m.observeCollaborator("evaluate", start, err)
		if err != nil {
			m.fail(connectionID, event, collaboratorError("evaluation", err))
			return
		}
		if !m.registry.Holds(s) {
			m.drop(connectionID, event, errors.New("session removed while evaluation was in flight"))
			return
		}
		m.applyEvaluation(s, feedback)
		m.ok(event)
		if !s.Completed() {
			m.emitAnalytics(connectionID, s.Snapshot())
		}
	}()
}

func (m *Manager) observeCollaborator(operation string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveCollaborator(operation, outcome, time.Since(start))
}

func collaboratorError(operation string, err error) error {
	if CodeFor(err) == models.CodeCollaboratorTimeout {
		return &OperationError{Code: models.CodeCollaboratorTimeout, Message: operation + " timed out", Err: err}
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) && t.Temporary() {
		return &OperationError{Code: models.CodeCollaboratorFailure, Message: operation + " unavailable, retry later", Err: err}
	}
	return &OperationError{Code: models.CodeCollaboratorFailure, Message: operation + " failed", Err: err}
}
