// Package server implements the session layer: connection handling, the
// name negotiation handshake, chat, and the routing of state mutations into
// the shared game.
package server

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/hexfield/hexfield/internal/core"
	"github.com/hexfield/hexfield/internal/events"
	"github.com/hexfield/hexfield/internal/game"
	"github.com/hexfield/hexfield/internal/packets"
	"github.com/hexfield/hexfield/internal/registry"
)

// Server is the session backend shared by every transport frontend. It owns
// the handshake state machine and the dispatch of admitted traffic.
type Server struct {
	config   *core.Config
	logger   *logrus.Logger
	users    *registry.UserRegistry
	conns    *registry.ConnRegistry
	game     *game.Game
	engine   game.Engine
	renderer game.Renderer
	events   *events.Producer

	nextConnID atomic.Int64
	active     atomic.Int64
}

func NewServer(
	cfg *core.Config,
	logger *logrus.Logger,
	users *registry.UserRegistry,
	conns *registry.ConnRegistry,
	g *game.Game,
	engine game.Engine,
	renderer game.Renderer,
	producer *events.Producer,
) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		users:    users,
		conns:    conns,
		game:     g,
		engine:   engine,
		renderer: renderer,
		events:   producer,
	}
}

// ActiveSessions returns the number of connections currently being served,
// admitted or not.
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

func (s *Server) allocConnID() int {
	return int(s.nextConnID.Add(1))
}

// ServeTransport runs the full lifecycle of one connection: handshake, the
// blocking read loop, and teardown. It only returns once the connection has
// closed.
func (s *Server) ServeTransport(ctx context.Context, t transport) {
	c := newClient(t, s.allocConnID(), s.config.GameServer.SendQueueSize, s.logger)
	s.active.Add(1)

	go c.runWriter()
	defer s.closeAndRecover(c)

	s.logger.Infof("accepted connection from %s", c.RemoteAddr())

	if err := s.Handshake(c); err != nil {
		s.logger.Errorf("handshake failed for client %s: %v", c.RemoteAddr(), err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		env, err := t.ReadPacket()
		if err == io.EOF {
			break
		} else if err != nil {
			s.logger.Warnf("read from client %s failed: %v", c.RemoteAddr(), err)
			break
		}

		s.Handle(c, env)
	}
}

// closeAndRecover is the failsafe that catches any panics, disconnects the
// client, and removes it from the registries regardless of the state of the
// connection.
func (s *Server) closeAndRecover(c *Client) {
	if err := recover(); err != nil {
		s.logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.RemoteAddr(), err, debug.Stack())
	}

	c.Close()
	s.handleDisconnect(c)
	s.active.Add(-1)

	s.logger.Infof("disconnected client %s", c.RemoteAddr())
}

// Handshake opens the session by challenging the client for a name.
func (s *Server) Handshake(c *Client) error {
	env, err := packets.New(packets.RequestNameType, nil)
	if err != nil {
		return err
	}
	c.Send(env)
	return nil
}

// Handle dispatches one inbound packet according to the client's state.
// Failures never propagate: protocol violations are logged and dropped with
// the connection left open.
func (s *Server) Handle(c *Client, env *packets.Envelope) {
	if c.Pending() {
		if env.Type != packets.SendNameType {
			s.logger.Warnf("dropping %s packet from unadmitted client %s", env.Type, c.RemoteAddr())
			return
		}
		s.handleSendName(c, env)
		return
	}

	switch env.Type {
	case packets.ChatCommandType:
		s.handleChat(c, env)
	case packets.GameCommandType:
		s.engine.HandleCommand(c.ID(), env.Data)
	default:
		s.route(c, env)
	}
}

// handleSendName runs the three-way name claim: reconnect rebind, suggest an
// alternate, or admit fresh.
func (s *Server) handleSendName(c *Client, env *packets.Envelope) {
	var req packets.SendName
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed name claim from %s: %v", c.RemoteAddr(), err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.logger.Warnf("empty name claim from %s", c.RemoteAddr())
		return
	}

	user, known := s.users.Lookup(name)

	// Reconnection: the name is known and its owner is genuinely gone, so
	// this connection takes over the old connection id.
	if req.Reconnect && known && !s.conns.Has(user.ConnectionID) {
		s.admitReconnect(c, user)
		return
	}

	// Name conflict: not an error, just the retry branch of the protocol.
	// DisconnectedOwner tells the client whether reconnecting would work.
	if known {
		suggestion, taken := s.users.SuggestAlternate(name)
		s.send(c, packets.SuggestNameType, &packets.SuggestName{
			Suggestion:        suggestion,
			Taken:             taken,
			DisconnectedOwner: !s.conns.Has(user.ConnectionID),
		})
		return
	}

	s.admitNew(c, name)
}

func (s *Server) admitReconnect(c *Client, user *registry.User) {
	c.admit(user.ConnectionID, user.Name)
	s.conns.Register(user.ConnectionID, c)

	s.engine.PlayerReconnected(user.ConnectionID)

	s.send(c, packets.InitClientType, &packets.InitClient{ID: user.ConnectionID})
	s.send(c, packets.SendGameType, &packets.SendGame{Game: s.game.Snapshot()})

	if _, ok := s.game.SetDisconnected(user.ConnectionID, false); ok {
		s.broadcast(packets.PlayerDisconnectionType, &packets.PlayerDisconnection{
			ID:           user.ConnectionID,
			Disconnected: false,
		})
	}
	s.broadcastSystemChat(fmt.Sprintf("%s reconnected.", user.Name))
	s.sendMOTD(c)

	s.events.Emit(events.PlayerReconnected, map[string]interface{}{
		"player": user.Name,
		"id":     user.ConnectionID,
	})
	s.logger.Infof("client %s reconnected as %q (id %d)", c.RemoteAddr(), user.Name, user.ConnectionID)
}

func (s *Server) admitNew(c *Client, name string) {
	id := c.ID()
	s.users.Register(&registry.User{Name: name, ConnectionID: id})
	c.admit(id, name)
	s.conns.Register(id, c)

	player := s.game.AddPlayer(id, name)
	s.engine.PlayerConnected(id, name)

	s.send(c, packets.InitClientType, &packets.InitClient{ID: id})
	s.send(c, packets.SendGameType, &packets.SendGame{Game: s.game.Snapshot()})

	s.broadcast(packets.AddPlayerType, &packets.AddPlayer{Player: player})
	s.broadcastSystemChat(fmt.Sprintf("%s joined the game.", name))
	s.sendMOTD(c)

	s.events.Emit(events.PlayerJoined, map[string]interface{}{
		"player": name,
		"id":     id,
	})
	s.logger.Infof("client %s admitted as %q (id %d)", c.RemoteAddr(), name, id)
}

// handleDisconnect runs on transport close. The identity registry entry is
// deliberately left intact so the player can reconnect later.
func (s *Server) handleDisconnect(c *Client) {
	if c.Pending() {
		return
	}
	id := c.ID()

	s.conns.Unregister(id)
	s.engine.PlayerDisconnected(id)

	if _, ok := s.game.SetDisconnected(id, true); ok {
		s.broadcast(packets.PlayerDisconnectionType, &packets.PlayerDisconnection{
			ID:           id,
			Disconnected: true,
		})
		s.broadcastSystemChat(fmt.Sprintf("%s disconnected.", c.Name()))
	}

	s.events.Emit(events.PlayerLeft, map[string]interface{}{
		"player": c.Name(),
		"id":     id,
	})
}

func (s *Server) sendMOTD(c *Client) {
	if s.config.MOTD == "" {
		return
	}
	rendered := s.renderer.Render(game.ChatMessage{Kind: game.ChatInfo, Body: s.config.MOTD})
	s.send(c, packets.ChatMessageType, &packets.ChatMessage{Message: rendered})
}

// send delivers one packet to a single client. Marshaling failures are a
// server bug; they are logged and the packet dropped.
func (s *Server) send(c *Client, packetType string, payload interface{}) {
	env, err := packets.New(packetType, payload)
	if err != nil {
		s.logger.Errorf("building %s packet: %v", packetType, err)
		return
	}
	c.Send(env)
}

// broadcast delivers one packet to every registered connection.
func (s *Server) broadcast(packetType string, payload interface{}) {
	env, err := packets.New(packetType, payload)
	if err != nil {
		s.logger.Errorf("building %s packet: %v", packetType, err)
		return
	}
	s.conns.Broadcast(env)
}
