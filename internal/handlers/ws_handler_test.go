package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/session"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newInterviewServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	logger := zap.NewNop()
	notifier := session.NewNotifier(logger)
	manager := session.NewManager(session.NewRegistry(), notifier,
		session.NewAggregator([]string{"neutral", "sad"}), logger)
	h := NewInterviewHandler(manager, notifier, logger)
	server := httptest.NewServer(http.HandlerFunc(h.InterviewWS))
	t.Cleanup(server.Close)
	return server, manager
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "data": data}))
}

func sendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame inbound
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func readError(t *testing.T, conn *websocket.Conn) models.OperationError {
	t.Helper()
	frame := read(t, conn)
	require.Equal(t, models.EventOperationError, frame.Type)
	var opErr models.OperationError
	require.NoError(t, json.Unmarshal(frame.Data, &opErr))
	return opErr
}

func connectionID(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	frame := read(t, conn)
	require.Equal(t, models.EventUserConnected, frame.Type)
	var uc models.UserConnected
	require.NoError(t, json.Unmarshal(frame.Data, &uc))
	require.NotEmpty(t, uc.ConnectionID)
	return uc.ConnectionID
}

func TestInterviewWSFullInterview(t *testing.T) {
	server, manager := newInterviewServer(t)
	conn := dial(t, server)
	id := connectionID(t, conn)

	send(t, conn, models.EventInitialSetup, models.Candidate{
		Email: "A@B.com", JobRole: "front-end", Skills: []string{"react"}, YearsOfExperience: 2,
	})
	send(t, conn, models.EventNewQuestion, map[string]any{
		"question": "Q1", "timeLimit": 180, "round": "technical",
	})
	for _, sample := range []struct {
		state string
		ts    int64
	}{{"neutral", 1000}, {"neutral", 1500}, {"sad", 2000}} {
		send(t, conn, models.EventFaceExpression, map[string]any{
			"expressionState": sample.state, "timeStamp": sample.ts, "questionAnswerIndex": 0,
		})
	}
	send(t, conn, models.EventComplete, nil)

	frame := read(t, conn)
	require.Equal(t, models.EventAnalytics, frame.Type)
	var analytics models.AnalyticsEvent
	require.NoError(t, json.Unmarshal(frame.Data, &analytics))

	snap := analytics.Snapshot
	require.NotNil(t, snap)
	assert.Equal(t, models.StatusCompleted, snap.Status)
	assert.Equal(t, "a@b.com", snap.Candidate.Email)
	require.Len(t, snap.Questions, 1)
	assert.Equal(t, []models.Segment{{Expression: "neutral", StartTime: 1000, EndTime: 1500}},
		snap.Questions[0].ExpressionSegments["neutral"])
	assert.Equal(t, []models.Segment{{Expression: "sad", StartTime: 2000, EndTime: 2000}},
		snap.Questions[0].ExpressionSegments["sad"])

	live, err := manager.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, live.Status)
}

func TestInterviewWSRejectsUnknownUpdateFields(t *testing.T) {
	server, _ := newInterviewServer(t)
	conn := dial(t, server)
	connectionID(t, conn)

	send(t, conn, models.EventInitialSetup, models.Candidate{Email: "a@b.com"})
	send(t, conn, models.EventNewQuestion, map[string]any{"question": "Q1", "round": "technical"})
	send(t, conn, models.EventUpdateQuestion, map[string]any{
		"questionAnswerIndex": 0, "answer": "x", "score": 10,
	})

	opErr := readError(t, conn)
	assert.Equal(t, models.CodeMalformedInput, opErr.Code)
	assert.Contains(t, opErr.Message, "score")
}

func TestInterviewWSReportsMalformedFrames(t *testing.T) {
	server, _ := newInterviewServer(t)
	conn := dial(t, server)
	connectionID(t, conn)

	sendRaw(t, conn, "{not json")
	assert.Equal(t, models.CodeMalformedInput, readError(t, conn).Code)

	send(t, conn, "no-such-event", map[string]any{})
	assert.Equal(t, models.CodeMalformedInput, readError(t, conn).Code)

	send(t, conn, models.EventNewQuestion, nil)
	assert.Equal(t, models.CodeMalformedInput, readError(t, conn).Code)
}

func TestInterviewWSCommandWithoutSession(t *testing.T) {
	server, _ := newInterviewServer(t)
	conn := dial(t, server)
	connectionID(t, conn)

	send(t, conn, models.EventNewQuestion, map[string]any{"question": "Q1", "round": "technical"})
	assert.Equal(t, models.CodeSessionNotFound, readError(t, conn).Code)
}

func TestInterviewWSDisconnectRemovesSession(t *testing.T) {
	server, manager := newInterviewServer(t)
	conn := dial(t, server)
	id := connectionID(t, conn)

	send(t, conn, models.EventInitialSetup, models.Candidate{Email: "a@b.com"})
	require.Eventually(t, func() bool {
		_, err := manager.Snapshot(id)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		_, err := manager.Snapshot(id)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDecode(t *testing.T) {
	var req models.UpdateQuestionRequest
	err := decode(json.RawMessage(`{"questionAnswerIndex":0,"status":"x"}`), &req, true)
	assert.ErrorIs(t, err, session.ErrUnknownField)

	err = decode(json.RawMessage(`{"questionAnswerIndex":0,"status":"x"}`), &req, false)
	assert.NoError(t, err)

	err = decode(nil, &req, false)
	assert.ErrorIs(t, err, session.ErrInvalidPayload)

	err = decode(json.RawMessage(`{"questionAnswerIndex":"zero"}`), &req, true)
	assert.ErrorIs(t, err, session.ErrInvalidPayload)
}

func TestInterviewWSRejectsNonFiniteScores(t *testing.T) {
	server, manager := newInterviewServer(t)
	conn := dial(t, server)
	id := connectionID(t, conn)

	send(t, conn, models.EventInitialSetup, models.Candidate{Email: "a@b.com"})
	send(t, conn, models.EventNewQuestion, map[string]any{"question": "Q1", "round": "technical"})
	sendRaw(t, conn, `{"type":"interview-evaluation","data":[{"feedback":"x","score":"NaN","correctAnswer":"y"}]}`)

	assert.Equal(t, models.CodeMalformedInput, readError(t, conn).Code)

	snap, err := manager.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, models.Score(0), snap.Questions[0].Score)
	_, err = json.Marshal(snap)
	assert.NoError(t, err)
}
