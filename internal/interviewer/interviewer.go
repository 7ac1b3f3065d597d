// Package interviewer talks to the AI collaborator: it builds prompts,
// bounds every call with a timeout and parses the replies.
package interviewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

var (
	ErrEmptyQuestion     = errors.New("collaborator returned an empty question")
	ErrMalformedFeedback = errors.New("collaborator returned malformed feedback")
)

type Interviewer struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	timeout  time.Duration
	logger   *zap.Logger
}

func New(provider llm.Provider, pm prompts.PromptProvider, timeout time.Duration, logger *zap.Logger) *Interviewer {
	return &Interviewer{
		provider: provider,
		prompts:  pm,
		timeout:  timeout,
		logger:   logger,
	}
}

type nextQuestionData struct {
	Candidate      models.Candidate
	Round          models.Round
	TimeLimit      int
	PreviousAnswer string
}

type evaluationData struct {
	Candidate models.Candidate
	Questions []models.QuestionSnapshot
}

// NextQuestion returns the text of the next question for round.
func (iv *Interviewer) NextQuestion(ctx context.Context, candidate models.Candidate, round models.Round, timeLimit int, previousAnswer string) (string, error) {
	prompt, err := iv.prompts.BuildPrompt(prompts.NextQuestion, string(round), nextQuestionData{
		Candidate:      candidate,
		Round:          round,
		TimeLimit:      timeLimit,
		PreviousAnswer: previousAnswer,
	})
	if err != nil {
		return "", fmt.Errorf("build next question prompt: %w", err)
	}

	text, err := iv.generate(ctx, "next_question", prompt)
	if err != nil {
		return "", err
	}
	question := strings.TrimSpace(utils.StripFences(text))
	if question == "" {
		return "", ErrEmptyQuestion
	}
	return question, nil
}

// Evaluate scores questions; the result is aligned with questions by
// position.
func (iv *Interviewer) Evaluate(ctx context.Context, candidate models.Candidate, questions []models.QuestionSnapshot) ([]models.Feedback, error) {
	prompt, err := iv.prompts.BuildPrompt(prompts.Evaluation, prompts.DefaultVariant, evaluationData{
		Candidate: candidate,
		Questions: questions,
	})
	if err != nil {
		return nil, fmt.Errorf("build evaluation prompt: %w", err)
	}

	text, err := iv.generate(ctx, "evaluate", prompt)
	if err != nil {
		return nil, err
	}
	feedback, err := ParseFeedback(text)
	if err != nil {
		return nil, err
	}
	if len(feedback) != len(questions) {
		iv.logger.Warn("feedback length does not match question count",
			zap.Int("feedback", len(feedback)),
			zap.Int("questions", len(questions)))
	}
	return feedback, nil
}

type result struct {
	resp *models.GenerationResponse
	err  error
}

// generate races the provider call against the timeout so a provider that
// ignores its context still cannot stall the caller.
func (iv *Interviewer) generate(ctx context.Context, operation, prompt string) (string, error) {
	if iv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}
	requestID := uuid.New().String()

	done := make(chan result, 1)
	go func() {
		resp, err := iv.provider.GenerateContent(ctx, prompt, requestID)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		iv.logger.Warn("collaborator call abandoned",
			zap.String("operation", operation),
			zap.String("request_id", requestID),
			zap.Error(ctx.Err()))
		return "", fmt.Errorf("%s: %w", operation, ctx.Err())
	case r := <-done:
		if r.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(r.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%s: %w (%v)", operation, context.DeadlineExceeded, r.err)
			}
			return "", fmt.Errorf("%s: %w", operation, r.err)
		}
		iv.logger.Debug("collaborator call finished",
			zap.String("operation", operation),
			zap.String("request_id", requestID),
			zap.String("provider", iv.provider.GetProviderName()),
			zap.Int("processing_time_ms", r.resp.Metadata.ProcessingTime))
		return r.resp.Content, nil
	}
}

// ParseFeedback decodes the evaluation reply: a JSON array of
// {feedback, score, correctAnswer}, possibly wrapped in markdown fences or
// surrounded by prose.
func ParseFeedback(text string) ([]models.Feedback, error) {
	body := utils.StripFences(text)
	var feedback []models.Feedback
	if err := json.Unmarshal([]byte(body), &feedback); err == nil {
		return feedback, nil
	}

	start, end := strings.Index(body, "["), strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedFeedback)
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), &feedback); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}
	return feedback, nil
}
