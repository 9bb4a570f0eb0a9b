package server

import (
	"github.com/hexfield/hexfield/internal/packets"
)

// route applies an admitted client's state-change request to the shared game
// and re-broadcasts it. Every branch enforces its authorization rule first;
// unauthorized or malformed requests are logged and dropped with no reply.
func (s *Server) route(c *Client, env *packets.Envelope) {
	switch env.Type {
	case packets.UpdatePlayerType:
		s.handleUpdatePlayer(c, env)
	case packets.PlayerReadyType:
		s.handlePlayerReady(c, env)
	case packets.AddEntityType:
		s.handleAddEntity(c, env)
	case packets.RemoveEntityType:
		s.handleRemoveEntity(c, env)
	case packets.RemovePlayerType:
		s.handleRemovePlayer(c, env)
	case packets.SetBoardType:
		s.handleSetBoard(c, env)
	case packets.SetWeatherType:
		s.handleSetWeather(c, env)
	default:
		s.logger.Warnf("dropping unrecognized %s packet from client %d", env.Type, c.ID())
	}
}

func (s *Server) handleUpdatePlayer(c *Client, env *packets.Envelope) {
	var req packets.UpdatePlayer
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed player update from client %d: %v", c.ID(), err)
		return
	}

	if !req.Player.CanEdit(c.ID()) {
		s.logger.Warnf("client %d attempted to edit player %d", c.ID(), req.Player.ID)
		return
	}

	updated, ok := s.game.UpdatePlayer(req.Player)
	if !ok {
		s.logger.Warnf("player update for unknown player %d", req.Player.ID)
		return
	}

	s.broadcast(packets.UpdatePlayerType, &packets.UpdatePlayer{Player: updated})
	// A settings change resets readiness; the reset is server-originated and
	// therefore broadcast.
	s.broadcast(packets.PlayerReadyType, &packets.PlayerReady{ID: updated.ID, Ready: false})
}

// handlePlayerReady applies an inbound ready toggle to local state without
// rebroadcasting it. Ready broadcasts only ever originate on the server
// (see handleUpdatePlayer); the directions are asymmetric on purpose.
func (s *Server) handlePlayerReady(c *Client, env *packets.Envelope) {
	var req packets.PlayerReady
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed ready toggle from client %d: %v", c.ID(), err)
		return
	}

	if _, ok := s.game.SetReady(req.ID, req.Ready); !ok {
		s.logger.Warnf("ready toggle for unknown player %d", req.ID)
	}
}

func (s *Server) handleAddEntity(c *Client, env *packets.Envelope) {
	var req packets.AddEntity
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed entity add from client %d: %v", c.ID(), err)
		return
	}

	// Ownership is never taken from the payload: the entity belongs to
	// whoever sent it.
	req.Entity.Owner = c.ID()
	added := s.game.AddEntity(req.Entity)

	s.broadcast(packets.AddEntityType, &packets.AddEntity{Entity: added})
}

func (s *Server) handleRemoveEntity(c *Client, env *packets.Envelope) {
	var req packets.RemoveEntity
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed entity removal from client %d: %v", c.ID(), err)
		return
	}

	entity, ok := s.game.Entity(req.ID)
	if !ok {
		s.logger.Warnf("removal of unknown entity %d by client %d", req.ID, c.ID())
		return
	}
	if entity.Owner != c.ID() {
		s.logger.Warnf("client %d attempted to remove entity %d owned by %d",
			c.ID(), entity.ID, entity.Owner)
		return
	}

	s.game.RemoveEntity(req.ID)
	s.broadcast(packets.RemoveEntityType, &packets.RemoveEntity{ID: req.ID})
}

func (s *Server) handleSetBoard(c *Client, env *packets.Envelope) {
	var req packets.SetBoard
	if err := env.Decode(&req); err != nil {
		s.logger.Errorf("malformed board from client %d: %v", c.ID(), err)
		return
	}
	if !req.Board.Valid() {
		s.logger.Errorf("board from client %d has %d cells for %dx%d grid",
			c.ID(), len(req.Board.Hexes), req.Board.Width, req.Board.Height)
		return
	}

	s.game.SetBoard(req.Board)
	s.broadcast(packets.SetBoardType, &packets.SetBoard{Board: req.Board})
}

func (s *Server) handleSetWeather(c *Client, env *packets.Envelope) {
	var req packets.SetWeather
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed weather from client %d: %v", c.ID(), err)
		return
	}

	s.game.SetWeather(req.Weather)
	s.broadcast(packets.SetWeatherType, &packets.SetWeather{Weather: s.game.Weather()})
}

// handleRemovePlayer is the rare explicit-eviction path. Only the player
// itself may leave the game this way; its identity is freed with it.
func (s *Server) handleRemovePlayer(c *Client, env *packets.Envelope) {
	var req packets.RemovePlayer
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed player removal from client %d: %v", c.ID(), err)
		return
	}

	if req.ID != c.ID() {
		s.logger.Warnf("client %d attempted to remove player %d", c.ID(), req.ID)
		return
	}

	if player, ok := s.game.RemovePlayer(req.ID); ok {
		s.users.Unregister(player.Name)
		s.broadcast(packets.RemovePlayerType, &packets.RemovePlayer{ID: req.ID})
	}
}
