// Package broadcast defines the outbound push boundary. The core publishes
// session events through a Gateway and never touches the transport itself.
package broadcast

import (
	"context"

	"go.uber.org/zap"
)

type Kind string

const (
	KindUpdated    Kind = "updated"
	KindJoined     Kind = "joined"
	KindTerminated Kind = "terminated"
	KindEndGame    Kind = "endgame"
)

// Event carries one state change for every participant of a session.
type Event struct {
	SessionID string `json:"sessionId"`
	Kind      Kind   `json:"kind"`
	Payload   any    `json:"payload,omitempty"`
}

type Gateway interface {
	Publish(ctx context.Context, event Event) error
}

// LogGateway is the fallback gateway when no transport is attached; it only
// records what would have been pushed.
type LogGateway struct {
	log *zap.Logger
}

func NewLogGateway(log *zap.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) Publish(ctx context.Context, event Event) error {
	g.log.Info("broadcast",
		zap.String("session_id", event.SessionID),
		zap.String("kind", string(event.Kind)),
	)
	return nil
}
