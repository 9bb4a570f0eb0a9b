package game

// WindStrength is the coarse wind level used by the game rules.
type WindStrength int

const (
	WindCalm WindStrength = iota
	WindLight
	WindModerate
	WindStrong
	WindStorm
)

// Weather is the shared weather state, replaced wholesale on update.
// WindDirection uses the same clockwise-from-north indexing as entity facing.
type Weather struct {
	WindDirection int          `json:"wind_direction"`
	WindStrength  WindStrength `json:"wind_strength"`
}
