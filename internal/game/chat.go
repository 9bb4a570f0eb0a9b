package game

import "fmt"

// ChatKind classifies a chat line for rendering and routing.
type ChatKind string

const (
	ChatPlain   ChatKind = "plain"
	ChatEmote   ChatKind = "emote"
	ChatWhisper ChatKind = "whisper"
	ChatInfo    ChatKind = "info"
	ChatSystem  ChatKind = "system"
)

// ChatMessage is a chat line before rendering. Origin is the display name
// of the sender, or empty for server-originated lines.
type ChatMessage struct {
	Kind   ChatKind `json:"kind"`
	Origin string   `json:"origin"`
	Body   string   `json:"body"`
}

// RenderedChat is the display payload produced by a Renderer and embedded
// verbatim in outbound chat packets.
type RenderedChat struct {
	Kind   ChatKind `json:"kind"`
	Origin string   `json:"origin"`
	Body   string   `json:"body"`
	Text   string   `json:"text"`
}

// Renderer converts a chat message into its display payload. It is invoked
// exactly once per outbound chat message.
type Renderer interface {
	Render(msg ChatMessage) RenderedChat
}

// markupRenderer is the default Renderer. The Text it produces is plain
// display markup; richer renderers can be swapped in per deployment.
type markupRenderer struct{}

// NewRenderer returns the default chat renderer.
func NewRenderer() Renderer {
	return markupRenderer{}
}

func (markupRenderer) Render(msg ChatMessage) RenderedChat {
	rendered := RenderedChat{
		Kind:   msg.Kind,
		Origin: msg.Origin,
		Body:   msg.Body,
	}

	switch msg.Kind {
	case ChatEmote:
		rendered.Text = fmt.Sprintf("* %s %s", msg.Origin, msg.Body)
	case ChatWhisper:
		rendered.Text = fmt.Sprintf("%s whispers: %s", msg.Origin, msg.Body)
	case ChatInfo, ChatSystem:
		rendered.Text = msg.Body
	default:
		rendered.Text = fmt.Sprintf("%s: %s", msg.Origin, msg.Body)
	}
	return rendered
}
