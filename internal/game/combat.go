package game

import (
	"errors"
	"math/rand"
)

// Validation errors surfaced verbatim to the acting player.
var (
	ErrNoUnit           = errors.New("no unit at that position")
	ErrNotYourUnit      = errors.New("not your unit")
	ErrAlreadyMoved     = errors.New("unit has already moved this turn")
	ErrOutOfBounds      = errors.New("destination out of bounds")
	ErrOccupied         = errors.New("destination is occupied")
	ErrOutOfRange       = errors.New("destination out of movement range")
	ErrUnitsNotFound    = errors.New("units not found")
	ErrFriendlyFire     = errors.New("cannot attack friendly units")
	ErrAlreadyAttacked  = errors.New("unit has already attacked this turn")
	ErrTargetOutOfRange = errors.New("target out of range")
)

// Attack result labels carried on the wire.
const (
	ResultDestroyed = "destroyed"
	ResultDamaged   = "damaged"
	ResultMissed    = "missed"
)

const maxDamage = 50

// Dice rolls a die with the given number of sides, returning a value in [1, sides].
type Dice func(sides int) int

// NewDice adapts a rand source into the Dice shape used by combat resolution.
func NewDice(rng *rand.Rand) Dice {
	return func(sides int) int {
		return rng.Intn(sides) + 1
	}
}

// AttackReport collates the outcome of a resolved attack.
type AttackReport struct {
	Result         string
	Damage         int
	DefenderName   string
	DefenderHealth int
}

// Move relocates the mover's unit, enforcing ownership, per-turn limits and range.
// On success the moved unit has its HasMoved flag set and a value copy is returned.
func (b *Board) Move(mover Faction, from, to Coord) (Unit, error) {
	unit, ok := b.UnitAt(from)
	if !ok {
		return Unit{}, ErrNoUnit
	}
	if unit.Faction != mover {
		return Unit{}, ErrNotYourUnit
	}
	if unit.HasMoved {
		return Unit{}, ErrAlreadyMoved
	}
	if !b.InBounds(to) {
		return Unit{}, ErrOutOfBounds
	}
	if _, occupied := b.UnitAt(to); occupied {
		return Unit{}, ErrOccupied
	}
	if Distance(from, to) > unit.Movement {
		return Unit{}, ErrOutOfRange
	}

	delete(b.Units, from.Key())
	b.Units[to.Key()] = unit
	unit.HasMoved = true
	return *unit, nil
}

// Attack resolves one attack between opposing units. Validation failures leave
// the board untouched; once validation passes the attacker spends its attack
// regardless of whether the roll connects.
func (b *Board) Attack(attacker Faction, atkPos, defPos Coord, roll Dice) (AttackReport, error) {
	atk, atkOK := b.UnitAt(atkPos)
	def, defOK := b.UnitAt(defPos)
	if !atkOK || !defOK {
		return AttackReport{}, ErrUnitsNotFound
	}
	if atk.Faction != attacker {
		return AttackReport{}, ErrNotYourUnit
	}
	if atk.HasAttacked {
		return AttackReport{}, ErrAlreadyAttacked
	}
	if def.Faction == attacker {
		return AttackReport{}, ErrFriendlyFire
	}
	if Distance(atkPos, defPos) > AttackRange(atk.Category) {
		return AttackReport{}, ErrTargetOutOfRange
	}

	attackRoll := roll(6) + atk.Attack
	defenseRoll := roll(6) + def.Defense + b.DefenseBonus(defPos)
	atk.HasAttacked = true

	report := AttackReport{DefenderName: def.Name}
	if attackRoll <= defenseRoll {
		report.Result = ResultMissed
		report.DefenderHealth = def.Health
		return report, nil
	}

	damage := attackRoll - defenseRoll
	if damage > maxDamage {
		damage = maxDamage
	}
	def.Health -= damage
	if def.Health <= 0 {
		delete(b.Units, defPos.Key())
		b.awardExperience(atk)
		report.Result = ResultDestroyed
		report.DefenderHealth = 0
		return report, nil
	}

	report.Result = ResultDamaged
	report.Damage = damage
	report.DefenderHealth = def.Health
	return report, nil
}

// awardExperience grants a kill bonus and applies veterancy upgrades exactly
// once per threshold crossing.
func (b *Board) awardExperience(unit *Unit) {
	before := unit.Experience
	unit.Experience += 2
	if before < 10 && unit.Experience >= 10 {
		unit.Attack++
	}
	if before < 20 && unit.Experience >= 20 {
		unit.Defense++
	}
}

// Outcome reports whether the session has finished and who, if anyone, won.
type Outcome struct {
	Over   bool
	Winner Faction
	Draw   bool
	Reason string
}

// Evaluate checks the victory conditions: a faction with no surviving units
// loses immediately; past the turn cap the larger army wins and equal counts
// draw.
func (b *Board) Evaluate(turn, maxTurns int) Outcome {
	czech := b.Count(FactionCzech)
	austrian := b.Count(FactionAustrian)

	if czech == 0 {
		return Outcome{Over: true, Winner: FactionAustrian, Reason: "Czech forces eliminated"}
	}
	if austrian == 0 {
		return Outcome{Over: true, Winner: FactionCzech, Reason: "Austrian forces eliminated"}
	}

	if maxTurns > 0 && turn > maxTurns {
		switch {
		case czech > austrian:
			return Outcome{Over: true, Winner: FactionCzech, Reason: "Maximum turns reached"}
		case austrian > czech:
			return Outcome{Over: true, Winner: FactionAustrian, Reason: "Maximum turns reached"}
		default:
			return Outcome{Over: true, Draw: true, Reason: "Maximum turns reached - draw"}
		}
	}

	return Outcome{}
}
