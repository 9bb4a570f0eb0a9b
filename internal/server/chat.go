package server

import (
	"fmt"
	"strings"

	"github.com/hexfield/hexfield/internal/events"
	"github.com/hexfield/hexfield/internal/game"
	"github.com/hexfield/hexfield/internal/packets"
)

const chatCommandPrefix = "/"

// handleChat interprets one inbound chat line. Lines starting with the
// command prefix are parsed as commands; everything else is broadcast as a
// plain message attributed to the sender.
func (s *Server) handleChat(c *Client, env *packets.Envelope) {
	var req packets.ChatCommand
	if err := env.Decode(&req); err != nil {
		s.logger.Warnf("malformed chat from client %d: %v", c.ID(), err)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, chatCommandPrefix) {
		s.handleChatCommand(c, strings.TrimPrefix(text, chatCommandPrefix))
		return
	}

	s.broadcastChat(game.ChatMessage{
		Kind:   game.ChatPlain,
		Origin: c.Name(),
		Body:   text,
	})
	s.events.Emit(events.ChatSent, map[string]interface{}{
		"player": c.Name(),
		"kind":   string(game.ChatPlain),
	})
}

func (s *Server) handleChatCommand(c *Client, text string) {
	command, rest := splitToken(text)

	switch command {
	case "me", "em":
		s.broadcastChat(game.ChatMessage{
			Kind:   game.ChatEmote,
			Origin: c.Name(),
			Body:   rest,
		})
		s.events.Emit(events.ChatSent, map[string]interface{}{
			"player": c.Name(),
			"kind":   string(game.ChatEmote),
		})
	case "w":
		s.handleWhisper(c, rest)
	default:
		s.sendInfo(c, "Unknown command")
	}
}

// handleWhisper delivers a private message to the named recipient and echoes
// it back to the sender. Whispering to yourself only delivers once.
func (s *Server) handleWhisper(c *Client, text string) {
	recipient, body := splitToken(text)

	user, ok := s.users.Lookup(recipient)
	if !ok {
		s.sendInfo(c, fmt.Sprintf("No such player: %s", recipient))
		return
	}

	rendered := s.renderer.Render(game.ChatMessage{
		Kind:   game.ChatWhisper,
		Origin: c.Name(),
		Body:   body,
	})
	env, err := packets.New(packets.ChatMessageType, &packets.ChatMessage{Message: rendered})
	if err != nil {
		s.logger.Errorf("building whisper packet: %v", err)
		return
	}

	s.conns.Send(c.ID(), env)
	if user.ConnectionID != c.ID() {
		s.conns.Send(user.ConnectionID, env)
	}
}

// broadcastChat renders a message, records it in the shared chat log, and
// fans it out to every connection.
func (s *Server) broadcastChat(msg game.ChatMessage) {
	rendered := s.renderer.Render(msg)
	s.game.AppendChat(rendered)
	s.broadcast(packets.ChatMessageType, &packets.ChatMessage{Message: rendered})
}

// broadcastSystemChat announces a server-originated event to everyone.
func (s *Server) broadcastSystemChat(body string) {
	s.broadcastChat(game.ChatMessage{Kind: game.ChatSystem, Body: body})
}

// sendInfo echoes an informational line to a single client only.
func (s *Server) sendInfo(c *Client, body string) {
	rendered := s.renderer.Render(game.ChatMessage{Kind: game.ChatInfo, Body: body})
	s.send(c, packets.ChatMessageType, &packets.ChatMessage{Message: rendered})
}

// splitToken peels the first token off text. A token opening with a double
// quote runs to the matching close quote, both stripped, and may contain
// spaces; with no closing quote the token is empty and the remainder is the
// original text. Unquoted tokens split on the first space. The remainder is
// always trimmed of surrounding whitespace.
func splitToken(text string) (token, remainder string) {
	if strings.HasPrefix(text, `"`) {
		end := strings.Index(text[1:], `"`)
		if end < 0 {
			return "", text
		}
		return text[1 : end+1], strings.TrimSpace(text[end+2:])
	}

	idx := strings.IndexByte(text, ' ')
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx+1:])
}
