package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/session"
)

const maxFrameBytes = 1 << 20

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Connections attaches and detaches live clients.
type Connections interface {
	session.Outbox
	Attach(connectionID string, c *session.Client)
	Detach(connectionID string)
}

type InterviewHandler struct {
	manager *session.Manager
	conns   Connections
	logger  *zap.Logger
}

func NewInterviewHandler(manager *session.Manager, conns Connections, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{manager: manager, conns: conns, logger: logger}
}

// InterviewWS upgrades the request and serves one interview connection
// until the peer goes away.
func (h *InterviewHandler) InterviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	connectionID := uuid.New().String()
	client := session.NewClient(conn)
	h.conns.Attach(connectionID, client)
	defer func() {
		h.manager.Disconnect(connectionID)
		h.conns.Detach(connectionID)
	}()

	h.logger.Info("connection opened", zap.String("connection_id", connectionID))
	h.conns.Emit(connectionID, models.WSFrame{
		Type: models.EventUserConnected,
		Data: models.UserConnected{ConnectionID: connectionID},
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("connection closed unexpectedly",
					zap.String("connection_id", connectionID),
					zap.Error(err))
			}
			return
		}
		var frame models.InboundFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			h.reject(connectionID, "", fmt.Errorf("%w: %v", session.ErrInvalidPayload, err))
			continue
		}
		h.dispatch(connectionID, frame)
	}
}

func (h *InterviewHandler) dispatch(connectionID string, frame models.InboundFrame) {
	switch frame.Type {
	case models.EventInitialSetup:
		var candidate models.Candidate
		if err := decode(frame.Data, &candidate, false); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.Initialize(connectionID, candidate)

	case models.EventNewQuestion:
		var req models.NewQuestionRequest
		if err := decode(frame.Data, &req, false); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.NewQuestion(connectionID, req)

	case models.EventUpdateQuestion:
		var req models.UpdateQuestionRequest
		if err := decode(frame.Data, &req, true); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.UpdateQuestionData(connectionID, req)

	case models.EventFaceExpression:
		var ev models.FaceExpressionEvent
		if err := decode(frame.Data, &ev, false); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.RecordTelemetry(connectionID, ev)

	case models.EventGazeTracking:
		var ev models.GazeEvent
		if err := decode(frame.Data, &ev, false); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.RecordGaze(connectionID, ev)

	case models.EventEvaluation:
		var feedback []models.Feedback
		if err := decode(frame.Data, &feedback, false); err != nil {
			h.reject(connectionID, frame.Type, err)
			return
		}
		h.manager.MergeEvaluation(connectionID, feedback)

	case models.EventComplete:
		h.manager.Complete(connectionID)

	case models.EventGenerateQuestion:
		var req models.GenerateQuestionRequest
		if len(frame.Data) > 0 {
			if err := decode(frame.Data, &req, false); err != nil {
				h.reject(connectionID, frame.Type, err)
				return
			}
		}
		h.manager.GenerateQuestion(connectionID, req)

	case models.EventRequestEvaluation:
		h.manager.RequestEvaluation(connectionID)

	default:
		h.reject(connectionID, "unknown",
			fmt.Errorf("%w: unknown event type %q", session.ErrInvalidPayload, frame.Type))
	}
}

func (h *InterviewHandler) reject(connectionID, event string, err error) {
	if event != "" {
		metrics.ObserveEvent(event, metrics.OutcomeError)
	}
	h.conns.Report(connectionID, session.CodeFor(err), session.MessageFor(err))
}

// decode unmarshals an event payload. strict rejects fields the target
// does not declare.
func decode(data json.RawMessage, v any, strict bool) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", session.ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return fmt.Errorf("%w: %s", session.ErrUnknownField, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return fmt.Errorf("%w: %v", session.ErrInvalidPayload, err)
	}
	return nil
}
