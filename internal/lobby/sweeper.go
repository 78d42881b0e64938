package lobby

import (
	"context"
	"time"

	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

// Sweep runs one maintenance pass: sessions with no members are dropped and
// waiting sessions older than the waiting timeout are expired with a notice.
func (r *Registry) Sweep() {
	var out outbox

	r.mu.Lock()
	now := r.now()
	for _, s := range r.sessions {
		if len(s.members) == 0 {
			r.dropSessionLocked(s, &out)
			r.log.Info("swept empty game", logging.String("game_id", s.id))
			continue
		}
		//1.- Only under-filled waiting sessions expire; a full roster is one
		// start_game away from play and keeps its slot.
		if s.state == StateWaiting && len(s.members) < maxPlayersPerGame && now.Sub(s.createdAt) > r.waitingTimeout {
			r.endSessionLocked(s, protocol.GameEnded{
				Type:   protocol.TypeGameEnded,
				Reason: "Game timed out while waiting for players",
			}, &out)
		}
	}
	r.mu.Unlock()
	out.flush()
}

// Run sweeps on the given interval until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
