package client

import (
	"net"
	"testing"
	"time"

	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/protocol"
)

func serverWrite(t *testing.T, conn net.Conn, msg protocol.Message) {
	t.Helper()
	payload, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode %s: %v", msg.Kind(), err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set write deadline: %v", err)
	}
	if err := protocol.WriteFrame(conn, payload); err != nil {
		t.Fatalf("write %s: %v", msg.Kind(), err)
	}
}

func serverRead(t *testing.T, conn net.Conn) protocol.Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	payload, err := protocol.ReadFrame(conn, 1<<20)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

// pipeAgent connects an agent to a scripted in-memory peer.
func pipeAgent(t *testing.T, opts ...Option) (*Agent, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		_ = clientSide.Close()
		_ = serverSide.Close()
	})

	handshake := make(chan error, 1)
	go func() {
		msg := serverRead(t, serverSide)
		reg, ok := msg.(protocol.Register)
		if !ok || reg.Name != "Alice" {
			t.Errorf("unexpected first message: %+v", msg)
		}
		serverWrite(t, serverSide, protocol.NewRegisterAck("client-9", protocol.StatusSuccess))
		handshake <- nil
	}()

	agent := New(opts...)
	if err := agent.start(clientSide, "Alice"); err != nil {
		t.Fatalf("start agent: %v", err)
	}
	<-handshake
	if agent.ClientID() != "client-9" {
		t.Fatalf("client id = %q, want client-9", agent.ClientID())
	}
	return agent, serverSide
}

func TestReceiveLoopDispatchesAndCaches(t *testing.T) {
	seen := make(chan protocol.Type, 8)
	agent, peer := pipeAgent(t, WithHandler(func(msg protocol.Message) {
		seen <- msg.Kind()
	}))

	serverWrite(t, peer, protocol.GameList{Type: protocol.TypeGameList, Games: []protocol.GameSummary{
		{ID: "game-1", Host: "Bob", Players: 1, MaxPlayers: 2},
	}})
	serverWrite(t, peer, protocol.GameState{
		Type:   protocol.TypeGameState,
		GameID: "game-1",
		State:  "active",
		Turn:   3,
	})

	for _, want := range []protocol.Type{protocol.TypeGameList, protocol.TypeGameState} {
		select {
		case got := <-seen:
			if got != want {
				t.Fatalf("dispatched %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	if games := agent.AvailableGames(); len(games) != 1 || games[0].ID != "game-1" {
		t.Fatalf("unexpected cached listing: %+v", games)
	}
	state, ok := agent.LastState()
	if !ok || state.Turn != 3 || agent.GameID() != "game-1" {
		t.Fatalf("unexpected cached state: %+v (game id %q)", state, agent.GameID())
	}
}

func TestJoinResponseSetsFactionAndGameEndedClearsIt(t *testing.T) {
	done := make(chan protocol.Message, 8)
	agent, peer := pipeAgent(t, WithHandler(func(msg protocol.Message) { done <- msg }))

	serverWrite(t, peer, protocol.JoinResponse{
		Type:    protocol.TypeJoinResponse,
		Status:  protocol.StatusSuccess,
		GameID:  "game-7",
		Faction: game.FactionAustrian,
	})
	<-done
	if agent.GameID() != "game-7" || agent.Faction() != game.FactionAustrian {
		t.Fatalf("join not applied: game %q faction %q", agent.GameID(), agent.Faction())
	}

	serverWrite(t, peer, protocol.GameEnded{Type: protocol.TypeGameEnded, Reason: "Host left the game"})
	<-done
	if agent.GameID() != "" || agent.Faction() != "" {
		t.Fatalf("game end not applied: game %q faction %q", agent.GameID(), agent.Faction())
	}
}

func TestDisconnectNotifiedExactlyOnce(t *testing.T) {
	drops := make(chan struct{}, 4)
	agent, peer := pipeAgent(t, WithDisconnectFunc(func() { drops <- struct{}{} }))

	_ = peer.Close()

	select {
	case <-drops:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for disconnect notification")
	}
	if agent.Connected() {
		t.Fatalf("agent still reports connected after peer close")
	}

	//1.- A follow-up Close must not fire the callback a second time.
	_ = agent.Close()
	select {
	case <-drops:
		t.Fatalf("disconnect callback fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendFailsWhenUnconnected(t *testing.T) {
	agent := New()
	if err := agent.ListGames(); err == nil {
		t.Fatalf("expected error sending on an unconnected agent")
	}
}
