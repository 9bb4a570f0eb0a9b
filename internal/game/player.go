package game

// Color is a player's display color, drawn from a fixed palette.
type Color int

const (
	ColorBlue Color = iota
	ColorRed
	ColorGreen
	ColorCyan
	ColorPink
	ColorOrange
	ColorGray
	ColorPurple
)

// Palette lists every assignable color in preference order.
var Palette = []Color{
	ColorBlue, ColorRed, ColorGreen, ColorCyan,
	ColorPink, ColorOrange, ColorGray, ColorPurple,
}

// HomeEdge names the board region a player deploys from.
type HomeEdge int

const (
	EdgeAny HomeEdge = iota
	EdgeNorth
	EdgeNortheast
	EdgeEast
	EdgeSoutheast
	EdgeSouth
	EdgeSouthwest
	EdgeWest
	EdgeNorthwest
	EdgeCenter
)

// NoTeam is the team value for players who haven't picked one.
const NoTeam = 0

// Player is a participant in the game. Its ID always equals the id of the
// connection that created it, including across reconnects.
type Player struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Team         int      `json:"team"`
	Color        Color    `json:"color"`
	HomeEdge     HomeEdge `json:"home_edge"`
	Ready        bool     `json:"ready"`
	Disconnected bool     `json:"disconnected"`
}

// CanEdit reports whether the given connection may modify this player's
// settings. Only the player itself may.
func (p *Player) CanEdit(connID int) bool {
	return p.ID == connID
}
