package game

// Hex is one board cell. Terrain values are opaque to the session layer;
// the geometry collaborator owns their meaning.
type Hex struct {
	Terrain   int `json:"terrain"`
	Elevation int `json:"elevation"`
}

// Board is a grid description, swapped in whole rather than diffed.
// Hexes is stored row-major and must contain exactly Width*Height cells.
type Board struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Hexes  []Hex `json:"hexes"`
}

// Valid reports whether the board's dimensions agree with its cell count.
func (b *Board) Valid() bool {
	return b.Width > 0 && b.Height > 0 && len(b.Hexes) == b.Width*b.Height
}
