package server

import (
	"context"
	"net"
	"testing"
	"time"

	"goldenbrigade/server/internal/config"
	"goldenbrigade/server/internal/lobby"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		Address:             "127.0.0.1:0",
		ReadTimeout:         50 * time.Millisecond,
		RegistrationTimeout: time.Second,
		MaxPayloadBytes:     1 << 20,
		SweepInterval:       time.Minute,
		WaitingTimeout:      time.Hour,
		MaxTurns:            20,
	}
}

// startWorker attaches a fresh connection worker to one end of a pipe and
// returns the client side.
func startWorker(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = clientSide.Close()
	})
	srv.StartConn(ctx, newTCPTransport(serverSide, srv.cfg.MaxPayloadBytes))
	return clientSide
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry := lobby.New(logging.NewTestLogger())
	return New(testConfig(), logging.NewTestLogger(), registry)
}

func writeMsg(t *testing.T, conn net.Conn, msg protocol.Message) {
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

func readMsg(t *testing.T, conn net.Conn) protocol.Message {
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

func register(t *testing.T, conn net.Conn, name string) string {
	t.Helper()
	writeMsg(t, conn, protocol.NewRegister(name))
	ack, ok := readMsg(t, conn).(protocol.RegisterAck)
	if !ok || ack.Status != protocol.StatusSuccess || ack.ClientID == "" {
		t.Fatalf("unexpected register ack: %+v", ack)
	}
	return ack.ClientID
}

func TestHandshakeAndCreateGame(t *testing.T) {
	srv := newTestServer(t)
	conn := startWorker(t, srv)

	register(t, conn, "Alice")
	writeMsg(t, conn, protocol.NewCreateGame())

	created, ok := readMsg(t, conn).(protocol.GameCreated)
	if !ok || created.GameID == "" {
		t.Fatalf("unexpected game_created: %+v", created)
	}
}

func TestFirstMessageMustBeRegister(t *testing.T) {
	srv := newTestServer(t)
	conn := startWorker(t, srv)

	writeMsg(t, conn, protocol.NewListGames())

	ack, ok := readMsg(t, conn).(protocol.RegisterAck)
	if !ok || ack.Status != protocol.StatusFailed {
		t.Fatalf("expected failed register ack, got %+v", ack)
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	if _, err := protocol.ReadFrame(conn, 1<<20); err == nil {
		t.Fatalf("expected connection to be closed after failed handshake")
	}
}

func TestMalformedMessageClosesConnection(t *testing.T) {
	srv := newTestServer(t)
	conn := startWorker(t, srv)
	register(t, conn, "Alice")

	if err := protocol.WriteFrame(conn, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	if _, err := protocol.ReadFrame(conn, 1<<20); err == nil {
		t.Fatalf("expected connection teardown after malformed payload")
	}
}

func TestDisconnectRunsLeaveProtocol(t *testing.T) {
	srv := newTestServer(t)
	aliceConn := startWorker(t, srv)
	bobConn := startWorker(t, srv)

	register(t, aliceConn, "Alice")
	bobID := register(t, bobConn, "Bob")

	writeMsg(t, aliceConn, protocol.NewCreateGame())
	created := readMsg(t, aliceConn).(protocol.GameCreated)

	writeMsg(t, bobConn, protocol.NewJoinGame(created.GameID))
	joined := readMsg(t, bobConn).(protocol.JoinResponse)
	if joined.Status != protocol.StatusSuccess {
		t.Fatalf("unexpected join response: %+v", joined)
	}
	if state, ok := readMsg(t, bobConn).(protocol.GameState); !ok || len(state.Players) != 2 {
		t.Fatalf("expected two-player state, got %+v", state)
	}

	//1.- The host must hear about the arrival before it disconnects.
	if arrival, ok := readMsg(t, aliceConn).(protocol.PlayerJoined); !ok || arrival.PlayerID != bobID {
		t.Fatalf("unexpected player_joined: %+v", arrival)
	}
	if _, ok := readMsg(t, aliceConn).(protocol.GameState); !ok {
		t.Fatalf("expected state broadcast to the host")
	}

	writeMsg(t, aliceConn, protocol.NewDisconnect())

	ended, ok := readMsg(t, bobConn).(protocol.GameEnded)
	if !ok || ended.Reason != "Host left the game" {
		t.Fatalf("unexpected game_ended: %+v", ended)
	}
}
