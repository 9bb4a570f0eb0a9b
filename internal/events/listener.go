package events

import "github.com/hexfield/hexfield/internal/game"

// StateChanged is emitted for every entity, board, and weather mutation.
const StateChanged = "state_changed"

// GameListener forwards game mutations to the event feed. It satisfies
// game.Listener and, like the Producer it wraps, costs nothing when the
// feed is disabled.
type GameListener struct {
	Producer *Producer
}

func (l *GameListener) GameChanged(e game.Event) {
	switch e.Type {
	case game.EventEntityAdded:
		l.Producer.Emit(StateChanged, map[string]interface{}{
			"change": "entity_added",
			"entity": e.Entity.ID,
			"owner":  e.Entity.Owner,
		})
	case game.EventEntityRemoved:
		l.Producer.Emit(StateChanged, map[string]interface{}{
			"change": "entity_removed",
			"entity": e.Entity.ID,
		})
	case game.EventBoardChanged:
		l.Producer.Emit(StateChanged, map[string]interface{}{
			"change": "board_changed",
			"width":  e.Board.Width,
			"height": e.Board.Height,
		})
	case game.EventWeatherChanged:
		l.Producer.Emit(StateChanged, map[string]interface{}{
			"change":    "weather_changed",
			"direction": e.Weather.WindDirection,
			"strength":  int(e.Weather.WindStrength),
		})
	}
}
