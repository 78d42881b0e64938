package server

import (
	"bufio"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"goldenbrigade/server/internal/protocol"
)

const writeTimeout = 10 * time.Second

// transport abstracts the framed byte stream carrying one client, so the same
// connection worker serves raw TCP sockets and websocket upgrades alike.
type transport interface {
	// ReadMessage blocks for one inbound payload or until the deadline passes.
	ReadMessage(deadline time.Time) ([]byte, error)
	// WriteMessage sends one payload as a single frame.
	WriteMessage(payload []byte) error
	Close() error
	RemoteAddr() string
}

// tcpTransport frames messages with the 4-byte length prefix.
type tcpTransport struct {
	conn       net.Conn
	reader     *bufio.Reader
	maxPayload int
}

func newTCPTransport(conn net.Conn, maxPayload int) *tcpTransport {
	return &tcpTransport{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		maxPayload: maxPayload,
	}
}

func (t *tcpTransport) ReadMessage(deadline time.Time) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return protocol.ReadFrame(t.reader, t.maxPayload)
}

func (t *tcpTransport) WriteMessage(payload []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(t.conn, payload)
}

func (t *tcpTransport) Close() error { return t.conn.Close() }

func (t *tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// wsTransport carries one JSON message per websocket text frame; the
// websocket layer supplies its own framing so no length prefix is used.
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn, maxPayload int) *wsTransport {
	conn.SetReadLimit(int64(maxPayload))
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadMessage(deadline time.Time) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, payload, err := t.conn.ReadMessage()
	return payload, err
}

func (t *wsTransport) WriteMessage(payload []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func (t *wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }
