package game

// Position is a cell on the board. Entities without a position are
// undeployed.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Entity is a positioned, owned game object. IDs are assigned by the Game
// and are unique for the lifetime of the server process.
//
// Facing is a direction index where 0 points at the board's north edge and
// increments rotate clockwise; the angle per step depends on the grid shape,
// which this layer never interprets.
type Entity struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Owner     int       `json:"owner"`
	Facing    int       `json:"facing"`
	Position  *Position `json:"position,omitempty"`
	Elevation int       `json:"elevation"`
}
