package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Engine is the per-game collaborator notified of session events and handed
// the game-specific commands this layer treats as opaque.
type Engine interface {
	PlayerConnected(id int, name string)
	PlayerDisconnected(id int)
	PlayerReconnected(id int)

	// HandleCommand receives the payload of a game command packet along with
	// the connection id it arrived on.
	HandleCommand(connID int, command json.RawMessage)
}

// NoopEngine is an Engine that only logs. It stands in when a game type has
// no server-side rules of its own.
type NoopEngine struct {
	Logger *logrus.Logger
}

func (e *NoopEngine) PlayerConnected(id int, name string) {
	e.Logger.Debugf("engine: player %d (%s) connected", id, name)
}

func (e *NoopEngine) PlayerDisconnected(id int) {
	e.Logger.Debugf("engine: player %d disconnected", id)
}

func (e *NoopEngine) PlayerReconnected(id int) {
	e.Logger.Debugf("engine: player %d reconnected", id)
}

func (e *NoopEngine) HandleCommand(connID int, command json.RawMessage) {
	e.Logger.Debugf("engine: unhandled command from %d: %s", connID, string(command))
}
