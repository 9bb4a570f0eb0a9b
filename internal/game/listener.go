package game

// EventType identifies which mutation a listener is being told about.
type EventType int

const (
	EventPlayerAdded EventType = iota
	EventPlayerRemoved
	EventPlayerChanged
	EventPlayerReady
	EventPlayerDisconnected
	EventEntityAdded
	EventEntityRemoved
	EventBoardChanged
	EventWeatherChanged
	EventChatAppended
)

// Event describes one mutation of the Game. Only the fields relevant to the
// Type are populated.
type Event struct {
	Type    EventType
	Player  *Player
	Entity  *Entity
	Board   *Board
	Weather *Weather
	Chat    *RenderedChat
}

// Listener observes game mutations. Callbacks run synchronously on the
// mutating goroutine, after the mutation has been applied and before the
// mutator returns, so implementations must not block.
type Listener interface {
	GameChanged(e Event)
}
