package lobby

import (
	"os"
	"path/filepath"
	"testing"

	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/protocol"
)

func scriptedDice(rolls ...int) game.Dice {
	next := 0
	return func(int) int {
		roll := rolls[next%len(rolls)]
		next++
		return roll
	}
}

// startedPair registers Alice and Bob, puts them in one session and starts it
// on the all-plains map so terrain never skews combat.
func startedPair(t *testing.T, opts ...Option) (*Registry, string, string, *recorder, *recorder, string) {
	t.Helper()
	registry := newTestRegistry(t, opts...)
	alice, bob := &recorder{}, &recorder{}
	aliceID := registry.Register("Alice", alice)
	bobID := registry.Register("Bob", bob)
	gameID, err := registry.CreateGame(aliceID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := registry.JoinGame(bobID, gameID); err != nil {
		t.Fatalf("join game: %v", err)
	}
	registry.HandleAction(aliceID, protocol.NewStartGame("open"))
	return registry, aliceID, bobID, alice, bob, gameID
}

// setUnits replaces the session's unit registry to set up combat scenarios.
func setUnits(r *Registry, gameID string, units map[game.Coord]game.Unit) {
	r.mu.Lock()
	board := r.sessions[gameID].board
	board.Units = make(map[string]*game.Unit, len(units))
	for at, unit := range units {
		u := unit
		board.Units[at.Key()] = &u
	}
	r.mu.Unlock()
}

func TestStartGameNeedsFullRoster(t *testing.T) {
	registry := newTestRegistry(t)
	alice := &recorder{}
	aliceID := registry.Register("Alice", alice)
	if _, err := registry.CreateGame(aliceID); err != nil {
		t.Fatalf("create game: %v", err)
	}

	registry.HandleAction(aliceID, protocol.NewStartGame(""))

	resp := alice.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Status != protocol.StatusFailed || resp.Message != "Not enough players to start" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if alice.count(protocol.TypeGameStarted) != 0 {
		t.Fatalf("game must not start with one player")
	}
}

func TestStartGameBroadcastsOpeningState(t *testing.T) {
	_, aliceID, _, alice, bob, _ := startedPair(t)

	for _, rec := range []*recorder{alice, bob} {
		started := rec.last(t, protocol.TypeGameStarted).(protocol.GameStarted)
		if started.FirstPlayer != "Alice" || started.Turn != 1 {
			t.Fatalf("unexpected game_started: %+v", started)
		}
		state := rec.last(t, protocol.TypeGameState).(protocol.GameState)
		if state.State != StateActive || state.Turn != 1 || state.CurrentPlayer != aliceID {
			t.Fatalf("unexpected opening state: %+v", state)
		}
		if state.Map == nil || state.Map.Width != 20 || state.Map.Height != 15 {
			t.Fatalf("unexpected map: %+v", state.Map)
		}
		if len(state.Units) != 10 {
			t.Fatalf("expected 10 opening units, got %d", len(state.Units))
		}
	}
}

func TestActionsRequireMembership(t *testing.T) {
	registry := newTestRegistry(t)
	carol := &recorder{}
	carolID := registry.Register("Carol", carol)

	registry.HandleAction(carolID, protocol.NewEndTurn())

	resp := carol.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Status != protocol.StatusFailed || resp.Message != "You are not in a game" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEndTurnRejectedBeforeStart(t *testing.T) {
	registry := newTestRegistry(t)
	alice, bob := &recorder{}, &recorder{}
	aliceID := registry.Register("Alice", alice)
	bobID := registry.Register("Bob", bob)
	gameID, _ := registry.CreateGame(aliceID)
	if err := registry.JoinGame(bobID, gameID); err != nil {
		t.Fatalf("join game: %v", err)
	}

	registry.HandleAction(aliceID, protocol.NewEndTurn())

	resp := alice.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Status != protocol.StatusFailed || resp.Message != "Game is not active" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if alice.count(protocol.TypeTurnChanged) != 0 {
		t.Fatalf("end_turn must not rotate a waiting session")
	}
}

func TestActionsRejectedOffTurn(t *testing.T) {
	registry, _, bobID, alice, bob, _ := startedPair(t)
	alice.reset()

	registry.HandleAction(bobID, protocol.NewMoveUnit(game.Coord{X: 18, Y: 13}, game.Coord{X: 17, Y: 13}))

	resp := bob.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Message != "Not your turn" {
		t.Fatalf("unexpected rejection: %+v", resp)
	}
	//1.- Rejections go to the submitter only; the opponent hears nothing.
	if kinds := alice.kinds(); len(kinds) != 0 {
		t.Fatalf("opponent saw traffic for a rejected action: %v", kinds)
	}
}

func TestOffTurnEndTurnLeavesTurnUnchanged(t *testing.T) {
	registry, aliceID, bobID, alice, bob, _ := startedPair(t)
	alice.reset()
	bob.reset()

	registry.HandleAction(bobID, protocol.NewEndTurn())

	resp := bob.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Status != protocol.StatusFailed || resp.Message != "Not your turn" {
		t.Fatalf("unexpected rejection: %+v", resp)
	}
	if bob.count(protocol.TypeTurnChanged) != 0 || alice.count(protocol.TypeTurnChanged) != 0 {
		t.Fatalf("off-turn end_turn must not rotate the turn")
	}

	//1.- The holder can still act, proving turn and ownership are untouched.
	registry.HandleAction(aliceID, protocol.NewEndTurn())
	changed := alice.last(t, protocol.TypeTurnChanged).(protocol.TurnChanged)
	if changed.PlayerID != bobID || changed.Turn != 1 {
		t.Fatalf("turn state drifted after rejected end_turn: %+v", changed)
	}
}

func TestMoveUnitBroadcastsEventAndState(t *testing.T) {
	registry, aliceID, _, alice, bob, _ := startedPair(t)

	registry.HandleAction(aliceID, protocol.NewMoveUnit(game.Coord{X: 1, Y: 1}, game.Coord{X: 1, Y: 2}))

	for _, rec := range []*recorder{alice, bob} {
		moved := rec.last(t, protocol.TypeUnitMoved).(protocol.UnitMoved)
		if moved.From != (game.Coord{X: 1, Y: 1}) || moved.To != (game.Coord{X: 1, Y: 2}) {
			t.Fatalf("unexpected unit_moved: %+v", moved)
		}
		if !moved.Unit.HasMoved {
			t.Fatalf("moved unit must carry the spent move flag")
		}
		state := rec.last(t, protocol.TypeGameState).(protocol.GameState)
		if _, stale := state.Units["1,1"]; stale {
			t.Fatalf("origin cell still occupied in state broadcast")
		}
		if _, ok := state.Units["1,2"]; !ok {
			t.Fatalf("destination cell empty in state broadcast")
		}
	}
}

func TestRejectedMoveLeavesBoardUntouched(t *testing.T) {
	registry, aliceID, _, alice, bob, _ := startedPair(t)
	alice.reset()
	bob.reset()

	registry.HandleAction(aliceID, protocol.NewMoveUnit(game.Coord{X: 1, Y: 1}, game.Coord{X: 1, Y: 9}))

	resp := alice.last(t, protocol.TypeActionResponse).(protocol.ActionResponse)
	if resp.Status != protocol.StatusFailed || resp.Message != game.ErrOutOfRange.Error() {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if alice.count(protocol.TypeUnitMoved) != 0 || bob.count(protocol.TypeUnitMoved) != 0 {
		t.Fatalf("rejected move must not broadcast a unit_moved event")
	}
}

func TestAttackBroadcastsDamage(t *testing.T) {
	registry, aliceID, _, alice, bob, gameID := startedPair(t, WithDice(scriptedDice(6, 3)))
	atk, _ := game.NewUnit("czech_infantry")
	def, _ := game.NewUnit("austrian_infantry")
	setUnits(registry, gameID, map[game.Coord]game.Unit{
		{X: 5, Y: 5}: atk,
		{X: 5, Y: 6}: def,
	})

	registry.HandleAction(aliceID, protocol.NewAttack(game.Coord{X: 5, Y: 5}, game.Coord{X: 5, Y: 6}))

	for _, rec := range []*recorder{alice, bob} {
		result := rec.last(t, protocol.TypeAttackResult).(protocol.AttackResult)
		if result.Result != game.ResultDamaged || result.Damage != 3 {
			t.Fatalf("unexpected attack_result: %+v", result)
		}
		state := rec.last(t, protocol.TypeGameState).(protocol.GameState)
		if got := state.Units["5,6"].Health; got != 97 {
			t.Fatalf("defender health = %d, want 97", got)
		}
	}
}

func TestEliminationEndsSession(t *testing.T) {
	registry, aliceID, bobID, alice, bob, gameID := startedPair(t, WithDice(scriptedDice(6, 1)))
	atk, _ := game.NewUnit("czech_infantry")
	def, _ := game.NewUnit("austrian_infantry")
	def.Health = 1
	setUnits(registry, gameID, map[game.Coord]game.Unit{
		{X: 5, Y: 5}: atk,
		{X: 5, Y: 6}: def,
	})

	registry.HandleAction(aliceID, protocol.NewAttack(game.Coord{X: 5, Y: 5}, game.Coord{X: 5, Y: 6}))

	for _, rec := range []*recorder{alice, bob} {
		result := rec.last(t, protocol.TypeAttackResult).(protocol.AttackResult)
		if result.Result != game.ResultDestroyed || result.Damage != 0 {
			t.Fatalf("unexpected attack_result: %+v", result)
		}
		ended := rec.last(t, protocol.TypeGameEnded).(protocol.GameEnded)
		if ended.Reason != "Austrian forces eliminated" || ended.Winner != game.FactionCzech {
			t.Fatalf("unexpected game_ended: %+v", ended)
		}
	}

	//1.- The finished session is gone and both players are free again.
	registry.ListGames(aliceID)
	if listing := alice.last(t, protocol.TypeGameList).(protocol.GameList); len(listing.Games) != 0 {
		t.Fatalf("finished session still listed: %+v", listing.Games)
	}
	if _, err := registry.CreateGame(bobID); err != nil {
		t.Fatalf("expected Bob to be free after the game ended: %v", err)
	}
}

func TestEndTurnRotatesAndCountsRounds(t *testing.T) {
	registry, aliceID, bobID, alice, _, _ := startedPair(t)

	registry.HandleAction(aliceID, protocol.NewEndTurn())
	changed := alice.last(t, protocol.TypeTurnChanged).(protocol.TurnChanged)
	if changed.Player != "Bob" || changed.PlayerID != bobID || changed.Turn != 1 {
		t.Fatalf("unexpected turn_changed: %+v", changed)
	}

	registry.HandleAction(bobID, protocol.NewEndTurn())
	changed = alice.last(t, protocol.TypeTurnChanged).(protocol.TurnChanged)
	if changed.Player != "Alice" || changed.Turn != 2 {
		t.Fatalf("round counter should advance when play wraps to the host: %+v", changed)
	}
}

func TestEndTurnRefreshesIncomingFaction(t *testing.T) {
	registry, aliceID, bobID, alice, _, _ := startedPair(t)

	registry.HandleAction(aliceID, protocol.NewMoveUnit(game.Coord{X: 1, Y: 1}, game.Coord{X: 1, Y: 2}))
	registry.HandleAction(aliceID, protocol.NewEndTurn())
	registry.HandleAction(bobID, protocol.NewEndTurn())

	state := alice.last(t, protocol.TypeGameState).(protocol.GameState)
	if unit := state.Units["1,2"]; unit.HasMoved {
		t.Fatalf("returning faction's flags were not reset: %+v", unit)
	}
}

func TestTurnCapEqualForcesDraw(t *testing.T) {
	registry, aliceID, bobID, alice, _, _ := startedPair(t, WithMaxTurns(1))

	registry.HandleAction(aliceID, protocol.NewEndTurn())
	registry.HandleAction(bobID, protocol.NewEndTurn())

	ended := alice.last(t, protocol.TypeGameEnded).(protocol.GameEnded)
	if ended.Reason != "Maximum turns reached - draw" || ended.Winner != "" {
		t.Fatalf("unexpected draw notice: %+v", ended)
	}
}

func TestTurnCapLargerArmyWins(t *testing.T) {
	registry, aliceID, bobID, alice, _, gameID := startedPair(t, WithMaxTurns(1))
	czech, _ := game.NewUnit("czech_infantry")
	czechTank, _ := game.NewUnit("czech_tank")
	austrian, _ := game.NewUnit("austrian_infantry")
	setUnits(registry, gameID, map[game.Coord]game.Unit{
		{X: 1, Y: 1}:   czech,
		{X: 2, Y: 3}:   czechTank,
		{X: 18, Y: 13}: austrian,
	})

	registry.HandleAction(aliceID, protocol.NewEndTurn())
	registry.HandleAction(bobID, protocol.NewEndTurn())

	ended := alice.last(t, protocol.TypeGameEnded).(protocol.GameEnded)
	if ended.Reason != "Maximum turns reached" || ended.Winner != game.FactionCzech {
		t.Fatalf("unexpected scoring notice: %+v", ended)
	}
}

func TestJournalCapturesSession(t *testing.T) {
	root := t.TempDir()
	registry, aliceID, _, _, _, _ := startedPair(t, WithJournalRoot(root))

	registry.HandleAction(aliceID, protocol.NewMoveUnit(game.Coord{X: 1, Y: 1}, game.Coord{X: 1, Y: 2}))
	registry.Unregister(aliceID)

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read journal root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one journal bundle, got %d", len(entries))
	}
	dir := filepath.Join(root, entries[0].Name())
	events, err := os.Stat(filepath.Join(dir, "events.jsonl.sz"))
	if err != nil {
		t.Fatalf("stat events: %v", err)
	}
	if events.Size() == 0 {
		t.Fatalf("journal event stream is empty")
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("stat manifest: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json.zst")); err != nil {
		t.Fatalf("stat checkpoint: %v", err)
	}
}
