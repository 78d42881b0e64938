package lobby

import (
	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/journal"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

// CreateGame opens a waiting session hosted by the client. The host is always
// assigned the Czech faction. The confirmation is delivered to the creator.
func (r *Registry) CreateGame(clientID string) (string, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return "", ErrUnknownClient
	}
	if client.GameID != "" {
		return "", ErrAlreadyInSession
	}

	s := &session{
		id:     r.sessionID(),
		hostID: clientID,
		state:  StateWaiting,
		members: []*member{
			{id: clientID, name: client.Name, faction: game.FactionCzech},
		},
		createdAt: r.now(),
	}
	r.sessions[s.id] = s
	client.GameID = s.id

	out.sendTo(client, protocol.NewGameCreated(s.id))
	r.log.Info("game created",
		logging.String("game_id", s.id),
		logging.String("host", client.Name))
	return s.id, nil
}

// JoinGame adds the client to a waiting session as the Austrian player. The
// joiner receives a join_response either way; on success the host is told of
// the arrival and both members receive a fresh state snapshot.
func (r *Registry) JoinGame(clientID, gameID string) error {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return ErrUnknownClient
	}

	reject := func(err error) error {
		out.sendTo(client, protocol.JoinResponse{
			Type:    protocol.TypeJoinResponse,
			Status:  protocol.StatusFailed,
			Message: err.Error(),
		})
		return err
	}

	if client.GameID != "" {
		return reject(ErrAlreadyInSession)
	}
	s, ok := r.sessions[gameID]
	if !ok {
		return reject(ErrSessionNotFound)
	}
	if s.state != StateWaiting {
		return reject(ErrSessionNotJoinable)
	}
	if len(s.members) >= maxPlayersPerGame {
		return reject(ErrSessionFull)
	}

	joiner := &member{id: clientID, name: client.Name, faction: game.FactionAustrian}
	s.members = append(s.members, joiner)
	client.GameID = s.id

	//1.- Full roster marks everyone ready; the host may now start the game.
	if len(s.members) == maxPlayersPerGame {
		for _, m := range s.members {
			m.ready = true
		}
	}

	out.sendTo(client, protocol.JoinResponse{
		Type:    protocol.TypeJoinResponse,
		Status:  protocol.StatusSuccess,
		GameID:  s.id,
		Faction: joiner.faction,
	})
	for _, m := range s.members {
		if m.id == clientID {
			continue
		}
		out.sendTo(r.clients[m.id], protocol.PlayerJoined{
			Type:       protocol.TypePlayerJoined,
			PlayerName: client.Name,
			PlayerID:   clientID,
		})
	}
	r.broadcastStateLocked(s, &out)

	r.log.Info("player joined game",
		logging.String("game_id", s.id),
		logging.String("player", client.Name))
	return nil
}

// LeaveGame removes the client from its session. A departing host ends the
// game for everyone; otherwise survivors are notified and play may continue.
func (r *Registry) LeaveGame(clientID string) {
	var out outbox

	r.mu.Lock()
	if client, ok := r.clients[clientID]; ok && client.GameID != "" {
		r.leaveLocked(client, &out)
	}
	r.mu.Unlock()
	out.flush()
}

// leaveLocked implements the departure protocol. Callers hold r.mu.
func (r *Registry) leaveLocked(client *Client, out *outbox) {
	s, ok := r.sessions[client.GameID]
	client.GameID = ""
	if !ok {
		return
	}

	remaining := s.members[:0]
	for _, m := range s.members {
		if m.id != client.ID {
			remaining = append(remaining, m)
		}
	}
	s.members = remaining

	if s.hostID == client.ID {
		//1.- The session cannot outlive its host.
		r.endSessionLocked(s, protocol.GameEnded{
			Type:   protocol.TypeGameEnded,
			Reason: "Host left the game",
		}, out)
		return
	}

	for _, m := range s.members {
		out.sendTo(r.clients[m.id], protocol.PlayerLeft{
			Type:       protocol.TypePlayerLeft,
			PlayerName: client.Name,
			PlayerID:   client.ID,
		})
	}
	if len(s.members) == 0 {
		r.dropSessionLocked(s, out)
		return
	}
	//2.- A departed member may not keep holding the turn.
	if s.state == StateActive && s.currentID == client.ID {
		next := s.members[0]
		s.currentID = next.id
		s.board.ResetTurn(next.faction)
		r.broadcastLocked(s, protocol.TurnChanged{
			Type:     protocol.TypeTurnChanged,
			Player:   next.name,
			PlayerID: next.id,
			Turn:     s.turn,
		}, out)
		r.broadcastStateLocked(s, out)
	}
	r.log.Info("player left game",
		logging.String("game_id", s.id),
		logging.String("player", client.Name))
}

// ListGames sends the lobby listing of joinable sessions to the client.
func (r *Registry) ListGames(clientID string) {
	var out outbox

	r.mu.Lock()
	client := r.clients[clientID]
	games := make([]protocol.GameSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		//1.- Only sessions a newcomer could actually join are advertised.
		if s.state != StateWaiting || len(s.members) >= maxPlayersPerGame {
			continue
		}
		host := ""
		if h := s.memberByID(s.hostID); h != nil {
			host = h.name
		}
		games = append(games, protocol.GameSummary{
			ID:         s.id,
			Host:       host,
			Players:    len(s.members),
			MaxPlayers: maxPlayersPerGame,
			CreatedAt:  s.createdAt.Unix(),
		})
	}
	out.sendTo(client, protocol.GameList{Type: protocol.TypeGameList, Games: games})
	r.mu.Unlock()

	out.flush()
}

// Chat fans a chat line out to every member of the sender's session, the
// sender included.
func (r *Registry) Chat(clientID, text string) {
	var out outbox

	r.mu.Lock()
	if client, ok := r.clients[clientID]; ok && client.GameID != "" {
		if s, ok := r.sessions[client.GameID]; ok {
			msg := protocol.NewChat(client.Name, text, r.now().Unix())
			for _, m := range s.members {
				out.sendTo(r.clients[m.id], msg)
			}
			r.journalLocked(s, msg)
		}
	}
	r.mu.Unlock()
	out.flush()
}

// snapshotLocked builds a full-state message from the session. Callers hold r.mu.
func (r *Registry) snapshotLocked(s *session) protocol.GameState {
	state := protocol.GameState{
		Type:    protocol.TypeGameState,
		GameID:  s.id,
		State:   s.state,
		Turn:    s.turn,
		Players: make(map[string]protocol.PlayerInfo, len(s.members)),
	}
	for _, m := range s.members {
		state.Players[m.id] = protocol.PlayerInfo{Name: m.name, Faction: m.faction, Ready: m.ready}
	}
	if current := s.memberByID(s.currentID); current != nil {
		state.CurrentPlayer = current.id
		state.CurrentPlayerName = current.name
	}
	if s.board != nil {
		state.Map = &protocol.MapState{
			Width:   s.board.Width,
			Height:  s.board.Height,
			Terrain: s.board.SnapshotTerrain(),
		}
		state.Units = s.board.SnapshotUnits()
	}
	return state
}

// broadcastLocked queues a message for every session member and journals it.
func (r *Registry) broadcastLocked(s *session, msg protocol.Message, out *outbox) {
	for _, m := range s.members {
		out.sendTo(r.clients[m.id], msg)
	}
	r.journalLocked(s, msg)
}

// broadcastStateLocked snapshots the session and fans the state out, updating
// the journal checkpoint alongside.
func (r *Registry) broadcastStateLocked(s *session, out *outbox) {
	state := r.snapshotLocked(s)
	for _, m := range s.members {
		out.sendTo(r.clients[m.id], state)
	}
	if w := s.journal; w != nil {
		out.later(func() {
			if err := w.Checkpoint(state); err != nil {
				r.log.Warn("journal checkpoint failed", logging.Error(err))
			}
		})
	}
}

// journalLocked records a broadcast line. Appends are best effort; a failing
// disk never interrupts play.
func (r *Registry) journalLocked(s *session, msg protocol.Message) {
	if w := s.journal; w != nil {
		if err := w.Append(msg); err != nil {
			r.log.Warn("journal append failed",
				logging.String("game_id", s.id), logging.Error(err))
		}
	}
}

// endSessionLocked broadcasts the terminal notice, then tears the session down.
func (r *Registry) endSessionLocked(s *session, notice protocol.GameEnded, out *outbox) {
	r.broadcastLocked(s, notice, out)
	r.dropSessionLocked(s, out)
	r.log.Info("game ended",
		logging.String("game_id", s.id),
		logging.String("reason", notice.Reason))
}

// dropSessionLocked deletes the session, detaches its members and seals the journal.
func (r *Registry) dropSessionLocked(s *session, out *outbox) {
	for _, m := range s.members {
		if client, ok := r.clients[m.id]; ok && client.GameID == s.id {
			client.GameID = ""
		}
	}
	delete(r.sessions, s.id)
	if w := s.journal; w != nil {
		s.journal = nil
		out.later(func() {
			if err := w.Close(); err != nil {
				r.log.Warn("journal close failed", logging.Error(err))
			}
		})
	}
}

// openJournalLocked attaches a journal writer when journalling is configured.
func (r *Registry) openJournalLocked(s *session) {
	if r.journalRoot == "" || s.journal != nil {
		return
	}
	w, err := journal.NewWriter(r.journalRoot, s.id, r.now)
	if err != nil {
		r.log.Warn("journal open failed",
			logging.String("game_id", s.id), logging.Error(err))
		return
	}
	s.journal = w
}
