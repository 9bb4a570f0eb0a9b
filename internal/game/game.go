// Package game holds the shared mutable game state synchronized across all
// connected clients, along with the collaborator interfaces surrounding it.
package game

import (
	"sort"
	"sync"
)

// Game is the aggregate root for all shared state: board, weather, players,
// entities, and the chat log. All methods are safe for concurrent use; every
// mutation notifies the registered listeners synchronously before returning.
type Game struct {
	mu sync.RWMutex

	board   Board
	weather Weather
	players map[int]*Player
	// entities are keyed by their Game-assigned id, starting at 1.
	entities     map[int]*Entity
	nextEntityID int
	chat         []RenderedChat

	listeners []Listener
}

func New() *Game {
	return &Game{
		players:      make(map[int]*Player),
		entities:     make(map[int]*Entity),
		nextEntityID: 1,
	}
}

// AddListener registers a listener for all subsequent mutations.
func (g *Game) AddListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

// TransferListeners moves every listener from g onto dst and clears them
// from g. This is used when a game is replaced wholesale by a snapshot: the
// observers follow the live instance, exactly once.
func (g *Game) TransferListeners(dst *Game) {
	g.mu.Lock()
	moved := g.listeners
	g.listeners = nil
	g.mu.Unlock()

	dst.mu.Lock()
	dst.listeners = append(dst.listeners, moved...)
	dst.mu.Unlock()
}

// notify runs with g.mu held so that listeners observe the post-mutation
// state before the mutator returns.
func (g *Game) notify(e Event) {
	for _, l := range g.listeners {
		l.GameChanged(e)
	}
}

// AddPlayer creates the player for a newly admitted connection. The player's
// color is the first unused palette entry, falling back to the first palette
// entry when all are in use.
func (g *Game) AddPlayer(id int, name string) Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := &Player{
		ID:       id,
		Name:     name,
		Team:     NoTeam,
		Color:    g.selectColor(),
		HomeEdge: EdgeAny,
	}
	g.players[id] = p

	g.notify(Event{Type: EventPlayerAdded, Player: p})
	return *p
}

func (g *Game) selectColor() Color {
	used := make(map[Color]bool, len(g.players))
	for _, p := range g.players {
		used[p.Color] = true
	}
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return Palette[0]
}

// RemovePlayer deletes the player outright. Disconnection does not remove
// players; this is for explicit eviction only.
func (g *Game) RemovePlayer(id int) (Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	delete(g.players, id)

	g.notify(Event{Type: EventPlayerRemoved, Player: p})
	return *p, true
}

// Player returns a copy of the player with the given id.
func (g *Game) Player(id int) (Player, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns copies of every player, ordered by id.
func (g *Game) Players() []Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.playersLocked()
}

func (g *Game) playersLocked() []Player {
	players := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// UpdatePlayer copies the editable settings (team, color, home edge) from
// update onto the stored player and clears the ready flag, since a settings
// change invalidates any prior readiness. Returns the resulting player.
func (g *Game) UpdatePlayer(update Player) (Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[update.ID]
	if !ok {
		return Player{}, false
	}
	p.Team = update.Team
	p.Color = update.Color
	p.HomeEdge = update.HomeEdge
	p.Ready = false

	g.notify(Event{Type: EventPlayerChanged, Player: p})
	return *p, true
}

// SetReady records a player's ready state.
func (g *Game) SetReady(id int, ready bool) (Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	p.Ready = ready

	g.notify(Event{Type: EventPlayerReady, Player: p})
	return *p, true
}

// SetDisconnected marks a player as absent (or present again) without
// removing it, which is what keeps reconnection possible.
func (g *Game) SetDisconnected(id int, disconnected bool) (Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	p.Disconnected = disconnected

	g.notify(Event{Type: EventPlayerDisconnected, Player: p})
	return *p, true
}

// AddEntity stores the entity under a freshly assigned id and returns the
// stored copy. The caller is responsible for having set the owner.
func (g *Game) AddEntity(e Entity) Entity {
	g.mu.Lock()
	defer g.mu.Unlock()

	e.ID = g.nextEntityID
	g.nextEntityID++
	stored := e
	g.entities[stored.ID] = &stored

	g.notify(Event{Type: EventEntityAdded, Entity: &stored})
	return stored
}

// ReplaceEntity stores the entity wholesale under its existing id, used for
// snapshot transfer. The id counter is advanced past the replaced id so that
// later AddEntity calls never collide.
func (g *Game) ReplaceEntity(e Entity) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored := e
	g.entities[stored.ID] = &stored
	if stored.ID >= g.nextEntityID {
		g.nextEntityID = stored.ID + 1
	}

	g.notify(Event{Type: EventEntityAdded, Entity: &stored})
}

// Entity returns a copy of the entity with the given id.
func (g *Game) Entity(id int) (Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Entities returns copies of every entity, ordered by id.
func (g *Game) Entities() []Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entitiesLocked()
}

func (g *Game) entitiesLocked() []Entity {
	entities := make([]Entity, 0, len(g.entities))
	for _, e := range g.entities {
		entities = append(entities, *e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities
}

// RemoveEntity deletes the entity. Ownership checks happen at the router;
// the Game applies whatever it is told.
func (g *Game) RemoveEntity(id int) (Entity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entities[id]
	if !ok {
		return Entity{}, false
	}
	delete(g.entities, id)

	g.notify(Event{Type: EventEntityRemoved, Entity: e})
	return *e, true
}

// SetBoard swaps in a new board wholesale.
func (g *Game) SetBoard(b Board) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.board = b
	g.notify(Event{Type: EventBoardChanged, Board: &g.board})
}

// Board returns the current board description.
func (g *Game) Board() Board {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board
}

// SetWeather copies the wind fields of w into the shared weather.
func (g *Game) SetWeather(w Weather) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.weather.WindDirection = w.WindDirection
	g.weather.WindStrength = w.WindStrength
	g.notify(Event{Type: EventWeatherChanged, Weather: &g.weather})
}

// Weather returns the current weather.
func (g *Game) Weather() Weather {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.weather
}

// AppendChat records a rendered chat line in the shared log. Only lines
// visible to everyone belong here; whispers and per-client info lines are
// delivered without being recorded.
func (g *Game) AppendChat(msg RenderedChat) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.chat = append(g.chat, msg)
	g.notify(Event{Type: EventChatAppended, Chat: &g.chat[len(g.chat)-1]})
}

// Chat returns a copy of the shared chat log.
func (g *Game) Chat() []RenderedChat {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chat := make([]RenderedChat, len(g.chat))
	copy(chat, g.chat)
	return chat
}

// Snapshot is the full serializable state of a Game, used for the one-shot
// transfer to newly admitted or reconnecting clients.
type Snapshot struct {
	Board    Board          `json:"board"`
	Weather  Weather        `json:"weather"`
	Players  []Player       `json:"players"`
	Entities []Entity       `json:"entities"`
	Chat     []RenderedChat `json:"chat"`
}

// Snapshot captures the entire game state under one read lock.
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chat := make([]RenderedChat, len(g.chat))
	copy(chat, g.chat)

	return Snapshot{
		Board:    g.board,
		Weather:  g.weather,
		Players:  g.playersLocked(),
		Entities: g.entitiesLocked(),
		Chat:     chat,
	}
}

// Restore replaces g's state with the snapshot's. Listeners are untouched;
// use TransferListeners when rebinding observers to a new instance.
func (g *Game) Restore(s Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.board = s.Board
	g.weather = s.Weather
	g.players = make(map[int]*Player, len(s.Players))
	for i := range s.Players {
		p := s.Players[i]
		g.players[p.ID] = &p
	}
	g.entities = make(map[int]*Entity, len(s.Entities))
	g.nextEntityID = 1
	for i := range s.Entities {
		e := s.Entities[i]
		g.entities[e.ID] = &e
		if e.ID >= g.nextEntityID {
			g.nextEntityID = e.ID + 1
		}
	}
	g.chat = make([]RenderedChat, len(s.Chat))
	copy(g.chat, s.Chat)
}
