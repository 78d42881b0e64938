package game

import (
	"math/rand"
	"testing"
)

func TestNewBoardStandardLayout(t *testing.T) {
	board := NewBoard("standard", rand.New(rand.NewSource(1)))

	if board.Width != 20 || board.Height != 15 {
		t.Fatalf("unexpected dimensions: %dx%d", board.Width, board.Height)
	}
	if len(board.Terrain) != board.Width*board.Height {
		t.Fatalf("expected full terrain coverage, got %d cells", len(board.Terrain))
	}

	for x := 0; x < board.Width; x++ {
		cell := board.Terrain[Coord{X: x, Y: board.Height / 2}.Key()]
		if cell.Name != "River" {
			t.Fatalf("expected river at column %d, got %q", x, cell.Name)
		}
	}
	for y := 0; y < board.Height; y++ {
		if y == board.Height/2 {
			continue
		}
		cell := board.Terrain[Coord{X: board.Width / 2, Y: y}.Key()]
		if cell.Name != "Road" {
			t.Fatalf("expected road at row %d, got %q", y, cell.Name)
		}
	}

	if got := len(board.Units); got != 10 {
		t.Fatalf("expected 10 starting units, got %d", got)
	}
	if board.Count(FactionCzech) != 5 || board.Count(FactionAustrian) != 5 {
		t.Fatalf("unexpected faction split: %d vs %d", board.Count(FactionCzech), board.Count(FactionAustrian))
	}
	infantry, ok := board.UnitAt(Coord{X: 1, Y: 1})
	if !ok || infantry.Name != "Czech Infantry" {
		t.Fatalf("expected Czech Infantry at 1,1, got %+v", infantry)
	}
	if infantry.Health != 100 || infantry.HasMoved || infantry.HasAttacked {
		t.Fatalf("starting unit not fresh: %+v", infantry)
	}
}

func TestNewBoardDeterministicPerSeed(t *testing.T) {
	a := NewBoard("standard", rand.New(rand.NewSource(42)))
	b := NewBoard("standard", rand.New(rand.NewSource(42)))

	for key, cell := range a.Terrain {
		if b.Terrain[key] != cell {
			t.Fatalf("terrain diverged at %s: %q vs %q", key, cell.Name, b.Terrain[key].Name)
		}
	}
}

func TestNewBoardOpenMapIsAllPlains(t *testing.T) {
	board := NewBoard("open", rand.New(rand.NewSource(1)))
	for key, cell := range board.Terrain {
		if cell.Name != "Plains" {
			t.Fatalf("expected plains at %s, got %q", key, cell.Name)
		}
	}
}

func TestCoordKeyRoundTrip(t *testing.T) {
	for _, c := range []Coord{{0, 0}, {19, 14}, {-1, 3}} {
		parsed, err := ParseKey(c.Key())
		if err != nil {
			t.Fatalf("parse %q: %v", c.Key(), err)
		}
		if parsed != c {
			t.Fatalf("round trip mismatch: %+v vs %+v", parsed, c)
		}
	}
	if _, err := ParseKey("nonsense"); err == nil {
		t.Fatalf("expected error for malformed key")
	}
}

func TestAttackRangeByCategory(t *testing.T) {
	cases := map[Category]int{
		CategoryInfantry:  1,
		CategoryArmor:     1,
		CategoryArtillery: 4,
		CategoryMissile:   5,
		CategoryAir:       6,
		CategoryDrone:     1,
	}
	for category, want := range cases {
		if got := AttackRange(category); got != want {
			t.Fatalf("range for %s: got %d want %d", category, got, want)
		}
	}
}
