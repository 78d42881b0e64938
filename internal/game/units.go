package game

import "fmt"

// Faction identifies one of the two sides of a session.
type Faction string

const (
	FactionCzech    Faction = "Czech"
	FactionAustrian Faction = "Austrian"
)

// Opponent returns the opposing faction.
func Opponent(f Faction) Faction {
	if f == FactionCzech {
		return FactionAustrian
	}
	return FactionCzech
}

// Category buckets units into classes that share an attack range.
type Category string

const (
	CategoryInfantry  Category = "Infantry"
	CategoryArmor     Category = "Armor"
	CategoryArtillery Category = "Artillery"
	CategoryMissile   Category = "Missile"
	CategoryAir       Category = "Air"
	CategoryDrone     Category = "Drone"
)

// AttackRange reports the Manhattan attack range fixed by a unit category.
func AttackRange(c Category) int {
	switch c {
	case CategoryArtillery:
		return 4
	case CategoryMissile:
		return 5
	case CategoryAir:
		return 6
	default:
		return 1
	}
}

// Unit is a snapshot of a single board piece. Health runs on a 0-100 scale.
type Unit struct {
	Name        string   `json:"name"`
	Attack      int      `json:"attack"`
	Defense     int      `json:"defense"`
	Movement    int      `json:"movement"`
	Category    Category `json:"type"`
	Faction     Faction  `json:"faction"`
	Health      int      `json:"health"`
	Experience  int      `json:"experience"`
	HasMoved    bool     `json:"has_moved"`
	HasAttacked bool     `json:"has_attacked"`
}

const fullHealth = 100

// unitTemplates defines the roster both factions draw their starting forces from.
var unitTemplates = map[string]Unit{
	"czech_infantry":     {Name: "Czech Infantry", Attack: 3, Defense: 3, Movement: 2, Category: CategoryInfantry, Faction: FactionCzech},
	"czech_tank":         {Name: "T-72M4 CZ", Attack: 6, Defense: 5, Movement: 3, Category: CategoryArmor, Faction: FactionCzech},
	"czech_artillery":    {Name: "DANA Howitzer", Attack: 7, Defense: 2, Movement: 1, Category: CategoryArtillery, Faction: FactionCzech},
	"czech_air":          {Name: "L-159 ALCA", Attack: 8, Defense: 3, Movement: 4, Category: CategoryAir, Faction: FactionCzech},
	"czech_missile":      {Name: "RBS-70 SAM", Attack: 6, Defense: 2, Movement: 1, Category: CategoryMissile, Faction: FactionCzech},
	"czech_drone":        {Name: "ScanEagle UAV", Attack: 4, Defense: 1, Movement: 3, Category: CategoryDrone, Faction: FactionCzech},
	"austrian_infantry":  {Name: "Austrian Infantry", Attack: 3, Defense: 3, Movement: 2, Category: CategoryInfantry, Faction: FactionAustrian},
	"austrian_tank":      {Name: "Leopard 2A4", Attack: 7, Defense: 5, Movement: 3, Category: CategoryArmor, Faction: FactionAustrian},
	"austrian_artillery": {Name: "M109 Howitzer", Attack: 7, Defense: 2, Movement: 1, Category: CategoryArtillery, Faction: FactionAustrian},
	"austrian_air":       {Name: "Eurofighter Typhoon", Attack: 9, Defense: 4, Movement: 5, Category: CategoryAir, Faction: FactionAustrian},
	"austrian_missile":   {Name: "Mistral SAM", Attack: 6, Defense: 2, Movement: 1, Category: CategoryMissile, Faction: FactionAustrian},
	"austrian_drone":     {Name: "Tracker UAV", Attack: 4, Defense: 1, Movement: 3, Category: CategoryDrone, Faction: FactionAustrian},
}

// NewUnit instantiates a fresh unit from the named template at full health.
func NewUnit(template string) (Unit, error) {
	proto, ok := unitTemplates[template]
	if !ok {
		return Unit{}, fmt.Errorf("unknown unit template %q", template)
	}
	proto.Health = fullHealth
	return proto, nil
}
