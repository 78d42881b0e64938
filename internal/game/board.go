package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const (
	standardWidth  = 20
	standardHeight = 15

	standardForests   = 30
	standardMountains = 20
)

// Coord addresses a single board cell.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key renders the coordinate in the "x,y" form used by the unit and terrain registries.
func (c Coord) Key() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// ParseKey inverts Key.
func ParseKey(key string) (Coord, error) {
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("malformed coordinate key %q", key)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return Coord{}, fmt.Errorf("malformed coordinate key %q", key)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coord{}, fmt.Errorf("malformed coordinate key %q", key)
	}
	return Coord{X: x, Y: y}, nil
}

// Distance returns the Manhattan distance between two cells.
func Distance(a, b Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Board holds the authoritative terrain and unit registries for one session.
type Board struct {
	Width   int
	Height  int
	Terrain map[string]Terrain
	Units   map[string]*Unit
}

// startingPlacements pairs each faction's opening roster with its deployment cell.
var startingPlacements = []struct {
	template string
	at       Coord
}{
	{"czech_infantry", Coord{1, 1}},
	{"czech_tank", Coord{2, 3}},
	{"czech_artillery", Coord{3, 5}},
	{"czech_air", Coord{1, 7}},
	{"czech_missile", Coord{2, 9}},
	{"austrian_infantry", Coord{standardWidth - 2, standardHeight - 2}},
	{"austrian_tank", Coord{standardWidth - 3, standardHeight - 4}},
	{"austrian_artillery", Coord{standardWidth - 4, standardHeight - 6}},
	{"austrian_air", Coord{standardWidth - 2, standardHeight - 8}},
	{"austrian_missile", Coord{standardWidth - 3, standardHeight - 10}},
}

// NewBoard generates terrain and initial unit placements for the given map type.
// Unknown map types fall back to the standard layout. The rng makes terrain
// scatter reproducible for a fixed seed.
func NewBoard(mapType string, rng *rand.Rand) *Board {
	board := &Board{
		Width:   standardWidth,
		Height:  standardHeight,
		Terrain: make(map[string]Terrain, standardWidth*standardHeight),
		Units:   make(map[string]*Unit, len(startingPlacements)),
	}

	//1.- Lay down a plains base before scattering features over it.
	plains := mustTerrain("plains")
	for x := 0; x < board.Width; x++ {
		for y := 0; y < board.Height; y++ {
			board.Terrain[Coord{X: x, Y: y}.Key()] = plains
		}
	}

	switch mapType {
	case "open":
		// Plains only, nothing further to scatter.
	default:
		forest := mustTerrain("forest")
		for i := 0; i < standardForests; i++ {
			at := Coord{X: rng.Intn(board.Width), Y: rng.Intn(board.Height)}
			board.Terrain[at.Key()] = forest
		}
		mountain := mustTerrain("mountain")
		for i := 0; i < standardMountains; i++ {
			at := Coord{X: rng.Intn(board.Width), Y: rng.Intn(board.Height)}
			board.Terrain[at.Key()] = mountain
		}
		//2.- A river crosses the middle row and a road runs down the middle column.
		river := mustTerrain("river")
		for x := 0; x < board.Width; x++ {
			board.Terrain[Coord{X: x, Y: board.Height / 2}.Key()] = river
		}
		road := mustTerrain("road")
		for y := 0; y < board.Height; y++ {
			board.Terrain[Coord{X: board.Width / 2, Y: y}.Key()] = road
		}
	}

	for _, placement := range startingPlacements {
		unit, err := NewUnit(placement.template)
		if err != nil {
			panic(err)
		}
		board.Units[placement.at.Key()] = &unit
	}

	return board
}

// InBounds reports whether the coordinate lies on the board.
func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

// UnitAt returns the unit occupying the cell, if any.
func (b *Board) UnitAt(c Coord) (*Unit, bool) {
	unit, ok := b.Units[c.Key()]
	return unit, ok
}

// DefenseBonus reports the terrain defense bonus at the cell.
func (b *Board) DefenseBonus(c Coord) int {
	if terrain, ok := b.Terrain[c.Key()]; ok {
		return terrain.DefenseBonus
	}
	return 0
}

// Count tallies the surviving units belonging to the faction.
func (b *Board) Count(f Faction) int {
	count := 0
	for _, unit := range b.Units {
		if unit.Faction == f {
			count++
		}
	}
	return count
}

// ResetTurn clears the per-turn action flags for every unit of the faction.
func (b *Board) ResetTurn(f Faction) {
	for _, unit := range b.Units {
		if unit.Faction == f {
			unit.HasMoved = false
			unit.HasAttacked = false
		}
	}
}

// SnapshotUnits returns a value copy of the unit registry safe to hand to encoders.
func (b *Board) SnapshotUnits() map[string]Unit {
	units := make(map[string]Unit, len(b.Units))
	for key, unit := range b.Units {
		units[key] = *unit
	}
	return units
}

// SnapshotTerrain returns a copy of the terrain registry.
func (b *Board) SnapshotTerrain() map[string]Terrain {
	terrain := make(map[string]Terrain, len(b.Terrain))
	for key, cell := range b.Terrain {
		terrain[key] = cell
	}
	return terrain
}
