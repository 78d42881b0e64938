package lobby

import (
	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

// HandleAction validates one in-session action against the authoritative
// session state. Rejections go back to the submitter alone; accepted actions
// produce a narrow event plus a full-state broadcast for every member.
func (r *Registry) HandleAction(clientID string, action protocol.GameAction) {
	var out outbox

	r.mu.Lock()
	r.handleActionLocked(clientID, action, &out)
	r.mu.Unlock()
	out.flush()
}

func (r *Registry) handleActionLocked(clientID string, action protocol.GameAction, out *outbox) {
	client, ok := r.clients[clientID]
	if !ok {
		return
	}

	reject := func(reason string) {
		out.sendTo(client, protocol.ActionResponse{
			Type:    protocol.TypeActionResponse,
			Status:  protocol.StatusFailed,
			Message: reason,
		})
	}

	s, ok := r.sessions[client.GameID]
	if client.GameID == "" || !ok {
		reject("You are not in a game")
		return
	}
	//1.- Turn ownership gates every action once play is under way.
	if s.state == StateActive && s.currentID != clientID {
		reject("Not your turn")
		return
	}

	actor := s.memberByID(clientID)
	if actor == nil {
		reject("You are not in a game")
		return
	}

	switch action.Action {
	case protocol.ActionStartGame:
		r.startGameLocked(s, action.Data.MapType, reject, out)
	case protocol.ActionMoveUnit:
		r.moveUnitLocked(s, actor, action.Data, reject, out)
	case protocol.ActionAttack:
		r.attackLocked(s, actor, action.Data, reject, out)
	case protocol.ActionEndTurn:
		r.endTurnLocked(s, reject, out)
	default:
		reject("Unknown action")
	}
}

func (r *Registry) startGameLocked(s *session, mapType string, reject func(string), out *outbox) {
	if s.state != StateWaiting {
		reject("Game has already started")
		return
	}
	if len(s.members) < maxPlayersPerGame {
		reject("Not enough players to start")
		return
	}

	s.board = game.NewBoard(mapType, r.mapRand)
	s.turn = 1
	s.currentID = s.hostID
	s.state = StateActive
	r.openJournalLocked(s)

	first := s.memberByID(s.hostID)
	r.broadcastLocked(s, protocol.GameStarted{
		Type:        protocol.TypeGameStarted,
		FirstPlayer: first.name,
		Turn:        s.turn,
	}, out)
	r.broadcastStateLocked(s, out)

	r.log.Info("game started",
		logging.String("game_id", s.id),
		logging.String("first_player", first.name))
}

func (r *Registry) moveUnitLocked(s *session, actor *member, data protocol.ActionData, reject func(string), out *outbox) {
	if s.state != StateActive {
		reject("Game is not active")
		return
	}

	from := game.Coord{X: data.FromX, Y: data.FromY}
	to := game.Coord{X: data.ToX, Y: data.ToY}
	moved, err := s.board.Move(actor.faction, from, to)
	if err != nil {
		reject(err.Error())
		return
	}

	r.broadcastLocked(s, protocol.UnitMoved{
		Type: protocol.TypeUnitMoved,
		From: from,
		To:   to,
		Unit: moved,
	}, out)
	r.broadcastStateLocked(s, out)
}

func (r *Registry) attackLocked(s *session, actor *member, data protocol.ActionData, reject func(string), out *outbox) {
	if s.state != StateActive {
		reject("Game is not active")
		return
	}

	atkPos := game.Coord{X: data.AttackerX, Y: data.AttackerY}
	defPos := game.Coord{X: data.DefenderX, Y: data.DefenderY}
	report, err := s.board.Attack(actor.faction, atkPos, defPos, r.dice)
	if err != nil {
		reject(err.Error())
		return
	}

	result := protocol.AttackResult{
		Type:     protocol.TypeAttackResult,
		Attacker: atkPos,
		Defender: defPos,
		Result:   report.Result,
	}
	//1.- Damage travels only on a damaging hit; misses and kills omit it.
	if report.Result == game.ResultDamaged {
		result.Damage = report.Damage
	}
	r.broadcastLocked(s, result, out)

	if outcome := s.board.Evaluate(s.turn, r.maxTurns); outcome.Over {
		r.endSessionLocked(s, noticeFor(outcome), out)
		return
	}
	r.broadcastStateLocked(s, out)
}

func (r *Registry) endTurnLocked(s *session, reject func(string), out *outbox) {
	if s.state != StateActive {
		reject("Game is not active")
		return
	}

	next := 0
	for i, m := range s.members {
		if m.id == s.currentID {
			next = (i + 1) % len(s.members)
			break
		}
	}
	//1.- The turn counter advances when play wraps back to the host.
	if next == 0 {
		s.turn++
	}
	nextMember := s.members[next]
	s.currentID = nextMember.id
	s.board.ResetTurn(nextMember.faction)

	if outcome := s.board.Evaluate(s.turn, r.maxTurns); outcome.Over {
		r.endSessionLocked(s, noticeFor(outcome), out)
		return
	}

	r.broadcastLocked(s, protocol.TurnChanged{
		Type:     protocol.TypeTurnChanged,
		Player:   nextMember.name,
		PlayerID: nextMember.id,
		Turn:     s.turn,
	}, out)
	r.broadcastStateLocked(s, out)
}

// noticeFor renders a finished outcome as the terminal broadcast. Draws carry
// no winner field.
func noticeFor(outcome game.Outcome) protocol.GameEnded {
	notice := protocol.GameEnded{Type: protocol.TypeGameEnded, Reason: outcome.Reason}
	if !outcome.Draw {
		notice.Winner = outcome.Winner
	}
	return notice
}
