// Packet types exchanged between the hexfield server and its clients.
package packets

import (
	"encoding/json"
	"fmt"

	"github.com/hexfield/hexfield/internal/game"
)

// Type tags for every packet carried in an Envelope.
const (
	RequestNameType         = "request_name"
	SendNameType            = "send_name"
	SuggestNameType         = "suggest_name"
	InitClientType          = "init_client"
	GameCommandType         = "game_command"
	ChatCommandType         = "chat_command"
	ChatMessageType         = "chat_message"
	AddPlayerType           = "add_player"
	RemovePlayerType        = "remove_player"
	UpdatePlayerType        = "update_player"
	PlayerReadyType         = "player_ready"
	PlayerDisconnectionType = "player_disconn"
	AddEntityType           = "add_entity"
	RemoveEntityType        = "remove_entity"
	SetBoardType            = "set_board"
	SetWeatherType          = "set_weather"
	SendGameType            = "send_game"
)

// Envelope is the self-describing frame in which every packet travels.
// Data holds the packet payload, still encoded, so that packets not
// handled by this layer can be passed through opaquely.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// New builds an Envelope for the given type tag and payload. A nil payload
// produces an envelope with no data, used by payloadless packets.
func New(packetType string, payload interface{}) (*Envelope, error) {
	env := &Envelope{Type: packetType}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s payload: %w", packetType, err)
		}
		env.Data = data
	}
	return env, nil
}

// Decode unmarshals the envelope's payload into v.
func (e *Envelope) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// SendName is the client's answer to a name request. Reconnect indicates
// that the client believes it owns an existing identity under this name.
type SendName struct {
	Name      string `json:"name"`
	Reconnect bool   `json:"reconnect"`
}

// SuggestName tells a client that its requested name was unavailable.
// DisconnectedOwner is set when the name's owner is currently absent,
// which means a reconnect attempt could succeed.
type SuggestName struct {
	Suggestion        string   `json:"suggestion"`
	Taken             []string `json:"taken"`
	DisconnectedOwner bool     `json:"disconnected_owner"`
}

// InitClient carries the connection id assigned to a newly admitted client.
type InitClient struct {
	ID int `json:"id"`
}

// ChatCommand is a raw chat line typed by a client, before any command
// parsing or rendering has happened.
type ChatCommand struct {
	SenderID int    `json:"sender_id"`
	Text     string `json:"text"`
}

// ChatMessage is the rendered form of a chat line, ready for display.
type ChatMessage struct {
	Message game.RenderedChat `json:"message"`
}

type AddPlayer struct {
	Player game.Player `json:"player"`
}

type RemovePlayer struct {
	ID int `json:"id"`
}

type UpdatePlayer struct {
	Player game.Player `json:"player"`
}

type PlayerReady struct {
	ID    int  `json:"id"`
	Ready bool `json:"ready"`
}

type PlayerDisconnection struct {
	ID           int  `json:"id"`
	Disconnected bool `json:"disconnected"`
}

type AddEntity struct {
	Entity game.Entity `json:"entity"`
}

type RemoveEntity struct {
	ID int `json:"id"`
}

type SetBoard struct {
	Board game.Board `json:"board"`
}

type SetWeather struct {
	Weather game.Weather `json:"weather"`
}

// SendGame transfers a full snapshot of the game, sent once on admission
// or reconnection.
type SendGame struct {
	Game game.Snapshot `json:"game"`
}
