package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder collects every event it observes.
type recorder struct {
	events []Event
}

func (r *recorder) GameChanged(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func TestAddPlayerAssignsUnusedColor(t *testing.T) {
	g := New()

	first := g.AddPlayer(1, "Alice")
	second := g.AddPlayer(2, "Bob")

	if first.Color == second.Color {
		t.Errorf("both players got color %v", first.Color)
	}
	if first.Color != Palette[0] {
		t.Errorf("first player color = %v, want %v", first.Color, Palette[0])
	}
	if second.Color != Palette[1] {
		t.Errorf("second player color = %v, want %v", second.Color, Palette[1])
	}
}

func TestAddPlayerColorFallsBackWhenPaletteExhausted(t *testing.T) {
	g := New()
	for i := 0; i < len(Palette); i++ {
		g.AddPlayer(i+1, "p")
	}

	overflow := g.AddPlayer(len(Palette)+1, "late")
	if overflow.Color != Palette[0] {
		t.Errorf("overflow player color = %v, want fallback %v", overflow.Color, Palette[0])
	}
}

func TestEntityIDsStartAtOneAndIncrease(t *testing.T) {
	g := New()

	a := g.AddEntity(Entity{Name: "lance", Owner: 1})
	b := g.AddEntity(Entity{Name: "archer", Owner: 1})

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("entity ids = %d, %d; want 1, 2", a.ID, b.ID)
	}
}

func TestReplaceEntityAdvancesIDCounter(t *testing.T) {
	g := New()
	g.ReplaceEntity(Entity{ID: 10, Name: "imported", Owner: 1})

	next := g.AddEntity(Entity{Name: "fresh", Owner: 1})
	if next.ID != 11 {
		t.Errorf("id after replace = %d, want 11", next.ID)
	}
}

func TestUpdatePlayerCopiesSettingsAndClearsReady(t *testing.T) {
	g := New()
	g.AddPlayer(1, "Alice")
	g.SetReady(1, true)

	updated, ok := g.UpdatePlayer(Player{
		ID:       1,
		Name:     "Mallory", // names are not editable through settings
		Team:     3,
		Color:    ColorOrange,
		HomeEdge: EdgeSouth,
	})
	if !ok {
		t.Fatal("UpdatePlayer failed for known player")
	}

	want := Player{ID: 1, Name: "Alice", Team: 3, Color: ColorOrange, HomeEdge: EdgeSouth}
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Errorf("player mismatch after update; diff:\n%s", diff)
	}
}

func TestUpdateUnknownPlayer(t *testing.T) {
	g := New()
	if _, ok := g.UpdatePlayer(Player{ID: 5}); ok {
		t.Error("UpdatePlayer succeeded for unknown player")
	}
}

func TestDisconnectMarksWithoutRemoving(t *testing.T) {
	g := New()
	g.AddPlayer(1, "Alice")

	g.SetDisconnected(1, true)
	p, ok := g.Player(1)
	if !ok {
		t.Fatal("player removed by disconnect")
	}
	if !p.Disconnected {
		t.Error("player not marked disconnected")
	}

	g.SetDisconnected(1, false)
	p, _ = g.Player(1)
	if p.Disconnected {
		t.Error("player still marked disconnected after rejoin")
	}
}

func TestListenersFireSynchronouslyPostMutation(t *testing.T) {
	g := New()
	rec := &recorder{}
	g.AddListener(rec)

	g.AddPlayer(1, "Alice")
	g.SetReady(1, true)
	g.SetWeather(Weather{WindDirection: 2, WindStrength: WindStrong})

	wantTypes := []EventType{EventPlayerAdded, EventPlayerReady, EventWeatherChanged}
	if diff := cmp.Diff(wantTypes, rec.types()); diff != "" {
		t.Fatalf("event sequence mismatch; diff:\n%s", diff)
	}

	// The ready event must carry the post-mutation player.
	if !rec.events[1].Player.Ready {
		t.Error("ready event observed pre-mutation state")
	}
	if rec.events[2].Weather.WindStrength != WindStrong {
		t.Error("weather event observed pre-mutation state")
	}
}

func TestTransferListenersMovesExactlyOnce(t *testing.T) {
	old := New()
	rec := &recorder{}
	old.AddListener(rec)

	fresh := New()
	old.TransferListeners(fresh)

	old.AddPlayer(1, "ghost")
	if len(rec.events) != 0 {
		t.Errorf("old game still notifies %d events after transfer", len(rec.events))
	}

	fresh.AddPlayer(2, "live")
	if len(rec.events) != 1 {
		t.Fatalf("new game notified %d events, want 1", len(rec.events))
	}

	// A second transfer from the drained game moves nothing.
	third := New()
	old.TransferListeners(third)
	third.AddPlayer(3, "other")
	if len(rec.events) != 1 {
		t.Errorf("listener duplicated by repeated transfer")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New()
	g.AddPlayer(1, "Alice")
	g.AddEntity(Entity{Name: "lance", Owner: 1, Position: &Position{X: 3, Y: 4}})
	g.SetBoard(Board{Width: 1, Height: 1, Hexes: []Hex{{Terrain: 2}}})
	g.SetWeather(Weather{WindDirection: 1, WindStrength: WindLight})
	g.AppendChat(RenderedChat{Kind: ChatSystem, Body: "Alice joined the game.", Text: "Alice joined the game."})

	restored := New()
	restored.Restore(g.Snapshot())

	if diff := cmp.Diff(g.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch; diff:\n%s", diff)
	}

	// The restored game must keep assigning fresh entity ids.
	next := restored.AddEntity(Entity{Name: "archer", Owner: 1})
	if next.ID != 2 {
		t.Errorf("entity id after restore = %d, want 2", next.ID)
	}
}

func TestRemoveEntity(t *testing.T) {
	g := New()
	e := g.AddEntity(Entity{Name: "lance", Owner: 1})

	removed, ok := g.RemoveEntity(e.ID)
	if !ok {
		t.Fatal("RemoveEntity failed for known entity")
	}
	if removed.Name != "lance" {
		t.Errorf("removed entity name = %q", removed.Name)
	}
	if _, ok := g.Entity(e.ID); ok {
		t.Error("entity still present after removal")
	}
	if _, ok := g.RemoveEntity(e.ID); ok {
		t.Error("second removal reported success")
	}
}

func TestBoardValid(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  bool
	}{
		{"square", Board{Width: 2, Height: 2, Hexes: make([]Hex, 4)}, true},
		{"cell count mismatch", Board{Width: 2, Height: 2, Hexes: make([]Hex, 3)}, false},
		{"zero width", Board{Width: 0, Height: 2}, false},
		{"negative height", Board{Width: 2, Height: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.board.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
