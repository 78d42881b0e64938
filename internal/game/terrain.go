package game

import "fmt"

// Terrain describes the properties of a single map cell.
type Terrain struct {
	Name         string  `json:"name"`
	MovementCost float64 `json:"movement_cost"`
	DefenseBonus int     `json:"defense_bonus"`
}

var terrainTemplates = map[string]Terrain{
	"plains":   {Name: "Plains", MovementCost: 1, DefenseBonus: 0},
	"forest":   {Name: "Forest", MovementCost: 2, DefenseBonus: 2},
	"mountain": {Name: "Mountain", MovementCost: 3, DefenseBonus: 3},
	"river":    {Name: "River", MovementCost: 4, DefenseBonus: 1},
	"road":     {Name: "Road", MovementCost: 0.5, DefenseBonus: 0},
	"urban":    {Name: "Urban", MovementCost: 1.5, DefenseBonus: 4},
}

// NewTerrain instantiates a terrain cell from the named template.
func NewTerrain(kind string) (Terrain, error) {
	proto, ok := terrainTemplates[kind]
	if !ok {
		return Terrain{}, fmt.Errorf("unknown terrain %q", kind)
	}
	return proto, nil
}

func mustTerrain(kind string) Terrain {
	terrain, err := NewTerrain(kind)
	if err != nil {
		panic(err)
	}
	return terrain
}
