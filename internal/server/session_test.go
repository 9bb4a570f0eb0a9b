package server

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexfield/hexfield/internal/core"
	"github.com/hexfield/hexfield/internal/game"
	"github.com/hexfield/hexfield/internal/packets"
	"github.com/hexfield/hexfield/internal/registry"
)

// fakeTransport satisfies transport without any real I/O. Tests drive the
// server by calling Handle directly and read responses off the client queue.
type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (t *fakeTransport) ReadPacket() (*packets.Envelope, error)  { return nil, io.EOF }
func (t *fakeTransport) WritePacket(env *packets.Envelope) error { return nil }
func (t *fakeTransport) RemoteAddr() string                      { return "fake:0" }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// recordingEngine captures every collaborator notification.
type recordingEngine struct {
	connected    []int
	disconnected []int
	reconnected  []int
	commands     []int
}

func (e *recordingEngine) PlayerConnected(id int, name string) { e.connected = append(e.connected, id) }
func (e *recordingEngine) PlayerDisconnected(id int)           { e.disconnected = append(e.disconnected, id) }
func (e *recordingEngine) PlayerReconnected(id int)            { e.reconnected = append(e.reconnected, id) }
func (e *recordingEngine) HandleCommand(connID int, _ json.RawMessage) {
	e.commands = append(e.commands, connID)
}

func newTestServer(t *testing.T) (*Server, *recordingEngine) {
	t.Helper()

	cfg := &core.Config{MaxConnections: 16}
	cfg.GameServer.SendQueueSize = 64

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := &recordingEngine{}
	s := NewServer(
		cfg,
		logger,
		registry.NewUserRegistry(),
		registry.NewConnRegistry(),
		game.New(),
		engine,
		game.NewRenderer(),
		nil,
	)
	return s, engine
}

func openConn(s *Server) *Client {
	return newClient(&fakeTransport{}, s.allocConnID(), 64, s.logger)
}

func sendName(t *testing.T, s *Server, c *Client, name string, reconnect bool) {
	t.Helper()
	env, err := packets.New(packets.SendNameType, &packets.SendName{Name: name, Reconnect: reconnect})
	require.NoError(t, err)
	s.Handle(c, env)
}

func sendPacket(t *testing.T, s *Server, c *Client, packetType string, payload interface{}) {
	t.Helper()
	env, err := packets.New(packetType, payload)
	require.NoError(t, err)
	s.Handle(c, env)
}

// drain empties a client's outbound queue, returning everything that was
// queued. All handling in these tests is synchronous, so the queue is
// complete by the time a handler returns.
func drain(c *Client) []*packets.Envelope {
	var out []*packets.Envelope
	for {
		select {
		case env := <-c.queue:
			out = append(out, env)
		default:
			return out
		}
	}
}

func ofType(envs []*packets.Envelope, packetType string) []*packets.Envelope {
	var matched []*packets.Envelope
	for _, env := range envs {
		if env.Type == packetType {
			matched = append(matched, env)
		}
	}
	return matched
}

func decodePayload[T any](t *testing.T, env *packets.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, env.Decode(&v))
	return v
}

// join runs a complete fresh-name handshake and discards the resulting
// traffic.
func join(t *testing.T, s *Server, name string) *Client {
	t.Helper()
	c := openConn(s)
	require.NoError(t, s.Handshake(c))
	sendName(t, s, c, name, false)
	require.False(t, c.Pending(), "client %s not admitted", name)
	drain(c)
	return c
}

func TestHandshakeRequestsName(t *testing.T) {
	s, _ := newTestServer(t)
	c := openConn(s)

	require.NoError(t, s.Handshake(c))

	out := drain(c)
	require.Len(t, out, 1)
	assert.Equal(t, packets.RequestNameType, out[0].Type)
	assert.True(t, c.Pending())
}

func TestFreshNameIsAdmitted(t *testing.T) {
	s, engine := newTestServer(t)
	c := openConn(s)
	require.NoError(t, s.Handshake(c))
	drain(c)

	sendName(t, s, c, "Alice", false)

	require.False(t, c.Pending())
	out := drain(c)

	inits := ofType(out, packets.InitClientType)
	require.Len(t, inits, 1)
	init := decodePayload[packets.InitClient](t, inits[0])
	assert.Equal(t, c.ID(), init.ID)

	snapshots := ofType(out, packets.SendGameType)
	require.Len(t, snapshots, 1)
	snap := decodePayload[packets.SendGame](t, snapshots[0])
	require.Len(t, snap.Game.Players, 1)
	assert.Equal(t, "Alice", snap.Game.Players[0].Name)

	require.Len(t, ofType(out, packets.AddPlayerType), 1)
	require.NotEmpty(t, ofType(out, packets.ChatMessageType))

	assert.Equal(t, []int{c.ID()}, engine.connected)
	assert.True(t, s.conns.Has(c.ID()))
	assert.True(t, s.users.Contains("alice"))
}

func TestNameConflictGetsSuggestion(t *testing.T) {
	s, _ := newTestServer(t)
	first := join(t, s, "Alice")

	second := openConn(s)
	require.NoError(t, s.Handshake(second))
	drain(second)

	sendName(t, s, second, "Alice", false)

	require.True(t, second.Pending(), "conflicting claim must not admit")
	out := ofType(drain(second), packets.SuggestNameType)
	require.Len(t, out, 1)

	suggest := decodePayload[packets.SuggestName](t, out[0])
	assert.Equal(t, "Alice.1", suggest.Suggestion)
	assert.Contains(t, suggest.Taken, "Alice")
	assert.False(t, suggest.DisconnectedOwner)

	// The suggested name is immediately claimable.
	sendName(t, s, second, suggest.Suggestion, false)
	require.False(t, second.Pending())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestConflictWithAbsentOwnerIsFlagged(t *testing.T) {
	s, _ := newTestServer(t)
	first := join(t, s, "Alice")

	// Tear the first connection down; the identity stays registered.
	first.Close()
	s.handleDisconnect(first)
	require.False(t, s.conns.Has(first.ID()))
	require.True(t, s.users.Contains("Alice"))

	second := openConn(s)
	require.NoError(t, s.Handshake(second))
	drain(second)
	sendName(t, s, second, "Alice", false)

	require.True(t, second.Pending())
	out := ofType(drain(second), packets.SuggestNameType)
	require.Len(t, out, 1)

	suggest := decodePayload[packets.SuggestName](t, out[0])
	assert.True(t, suggest.DisconnectedOwner)
}

func TestReconnectRebindsOldConnectionID(t *testing.T) {
	s, engine := newTestServer(t)
	first := join(t, s, "Alice")
	oldID := first.ID()

	first.Close()
	s.handleDisconnect(first)

	second := openConn(s)
	require.NoError(t, s.Handshake(second))
	drain(second)
	sendName(t, s, second, "Alice", true)

	require.False(t, second.Pending())
	assert.Equal(t, oldID, second.ID(), "reconnection must reuse the original id")

	out := drain(second)
	init := decodePayload[packets.InitClient](t, ofType(out, packets.InitClientType)[0])
	assert.Equal(t, oldID, init.ID)
	require.Len(t, ofType(out, packets.SendGameType), 1)

	assert.Equal(t, []int{oldID}, engine.reconnected)
	assert.Equal(t, []int{oldID}, engine.connected, "reconnection must not look like a fresh join")

	p, ok := s.game.Player(oldID)
	require.True(t, ok)
	assert.False(t, p.Disconnected)
}

func TestReconnectAgainstActiveOwnerSuggestsInstead(t *testing.T) {
	s, engine := newTestServer(t)
	join(t, s, "Alice")

	second := openConn(s)
	require.NoError(t, s.Handshake(second))
	drain(second)
	sendName(t, s, second, "Alice", true)

	require.True(t, second.Pending(), "active identity must not be hijacked")
	out := ofType(drain(second), packets.SuggestNameType)
	require.Len(t, out, 1)
	assert.False(t, decodePayload[packets.SuggestName](t, out[0]).DisconnectedOwner)
	assert.Empty(t, engine.reconnected)
}

func TestDisconnectKeepsIdentityAndMarksPlayer(t *testing.T) {
	s, engine := newTestServer(t)
	alice := join(t, s, "Alice")
	bob := join(t, s, "Bob")
	drain(alice)

	alice.Close()
	s.handleDisconnect(alice)

	assert.True(t, s.users.Contains("Alice"))
	assert.False(t, s.conns.Has(alice.ID()))
	assert.Equal(t, []int{alice.ID()}, engine.disconnected)

	p, ok := s.game.Player(alice.ID())
	require.True(t, ok, "disconnect must not remove the player")
	assert.True(t, p.Disconnected)

	out := drain(bob)
	disconns := ofType(out, packets.PlayerDisconnectionType)
	require.Len(t, disconns, 1)
	payload := decodePayload[packets.PlayerDisconnection](t, disconns[0])
	assert.Equal(t, alice.ID(), payload.ID)
	assert.True(t, payload.Disconnected)
}

func TestPacketsBeforeAdmissionAreDropped(t *testing.T) {
	s, engine := newTestServer(t)
	c := openConn(s)
	require.NoError(t, s.Handshake(c))
	drain(c)

	sendPacket(t, s, c, packets.AddEntityType, &packets.AddEntity{Entity: game.Entity{Name: "sneak"}})

	assert.True(t, c.Pending())
	assert.Empty(t, drain(c))
	assert.Empty(t, s.game.Entities())
	assert.Empty(t, engine.connected)
}

func TestGameCommandForwardedToEngine(t *testing.T) {
	s, engine := newTestServer(t)
	c := join(t, s, "Alice")

	sendPacket(t, s, c, packets.GameCommandType, map[string]interface{}{"op": "move"})

	assert.Equal(t, []int{c.ID()}, engine.commands)
}

func TestMOTDSentToNewPlayer(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.MOTD = "welcome aboard"

	c := openConn(s)
	require.NoError(t, s.Handshake(c))
	drain(c)
	sendName(t, s, c, "Alice", false)

	var found bool
	for _, env := range ofType(drain(c), packets.ChatMessageType) {
		msg := decodePayload[packets.ChatMessage](t, env)
		if msg.Message.Kind == game.ChatInfo && msg.Message.Body == "welcome aboard" {
			found = true
		}
	}
	assert.True(t, found, "motd chat line not delivered")
}
