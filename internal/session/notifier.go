package session

import (
	"sync"

	"go.uber.org/zap"

	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/models"
)

// Reporter turns a failure into a notification for one connection. It must
// never panic or return an error.
type Reporter interface {
	Report(connectionID, code, message string)
}

// Outbox delivers frames to connections.
type Outbox interface {
	Reporter
	Emit(connectionID string, frame models.WSFrame)
}

// Notifier maps connection ids to their clients.
type Notifier struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{clients: make(map[string]*Client), logger: logger}
}

func (n *Notifier) Attach(connectionID string, c *Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[connectionID] = c
}

func (n *Notifier) Detach(connectionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients, connectionID)
}

// Emit sends frame to the connection. Unknown connections and write errors
// are logged; the frame is dropped.
func (n *Notifier) Emit(connectionID string, frame models.WSFrame) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("panic while emitting frame",
				zap.String("connection_id", connectionID),
				zap.String("event", frame.Type),
				zap.Any("panic", r))
		}
	}()

	n.mu.RLock()
	c, ok := n.clients[connectionID]
	n.mu.RUnlock()
	if !ok {
		n.logger.Warn("dropping frame for detached connection",
			zap.String("connection_id", connectionID),
			zap.String("event", frame.Type))
		return
	}
	if err := c.Send(frame); err != nil {
		n.logger.Warn("failed to write frame",
			zap.String("connection_id", connectionID),
			zap.String("event", frame.Type),
			zap.Error(err))
	}
}

func (n *Notifier) Report(connectionID, code, message string) {
	n.logger.Error("operation error",
		zap.String("connection_id", connectionID),
		zap.String("code", code),
		zap.String("error", message))
	metrics.ObserveOperationError(code)
	n.Emit(connectionID, models.WSFrame{
		Type: models.EventOperationError,
		Data: models.OperationError{Code: code, Message: message},
	})
}
