package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error marks malformed or unrecognized wire data. The framing may be
// desynchronized after one, so the owning connection must be closed; the
// process keeps running.
type Error struct {
	reason string
}

func (e *Error) Error() string { return "protocol: " + e.reason }

func errf(format string, args ...any) *Error {
	return &Error{reason: fmt.Sprintf(format, args...)}
}

// IsProtocolError reports whether err originated from decoding or framing.
func IsProtocolError(err error) bool {
	var perr *Error
	return errors.As(err, &perr)
}

type decoder func([]byte) (Message, error)

func decodeAs[T Message](data []byte) (Message, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errf("unmarshal %s: %v", msg.Kind(), err)
	}
	return msg, nil
}

var decoders = map[Type]decoder{
	TypeRegister:       decodeAs[Register],
	TypeRegisterAck:    decodeAs[RegisterAck],
	TypeCreateGame:     decodeAs[CreateGame],
	TypeGameCreated:    decodeAs[GameCreated],
	TypeJoinGame:       decodeAs[JoinGame],
	TypeJoinResponse:   decodeAs[JoinResponse],
	TypeListGames:      decodeAs[ListGames],
	TypeGameList:       decodeAs[GameList],
	TypeGameAction:     decodeAs[GameAction],
	TypeActionResponse: decodeAs[ActionResponse],
	TypeGameState:      decodeAs[GameState],
	TypePlayerJoined:   decodeAs[PlayerJoined],
	TypePlayerLeft:     decodeAs[PlayerLeft],
	TypeGameStarted:    decodeAs[GameStarted],
	TypeTurnChanged:    decodeAs[TurnChanged],
	TypeUnitMoved:      decodeAs[UnitMoved],
	TypeAttackResult:   decodeAs[AttackResult],
	TypeGameEnded:      decodeAs[GameEnded],
	TypeChat:           decodeAs[Chat],
	TypeDisconnect:     decodeAs[Disconnect],
}

// Encode serializes a message into its tagged JSON form. It never fails for
// messages built through the package constructors.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errf("nil message")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errf("marshal %s: %v", msg.Kind(), err)
	}
	return data, nil
}

// Decode parses tagged JSON into the concrete message for its kind. Unknown
// kinds, unparsable payloads and missing required fields all yield *Error.
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errf("unparsable payload: %v", err)
	}
	if envelope.Type == "" {
		return nil, errf("missing message type")
	}
	decode, ok := decoders[envelope.Type]
	if !ok {
		return nil, errf("unknown message type %q", envelope.Type)
	}
	msg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := validate(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// validate enforces the required fields of each kind.
func validate(msg Message) error {
	switch m := msg.(type) {
	case Register:
		if m.Name == "" {
			return errf("register requires a name")
		}
	case RegisterAck:
		if m.ClientID == "" && m.Status == StatusSuccess {
			return errf("register_ack requires a client id on success")
		}
	case JoinGame:
		if m.GameID == "" {
			return errf("join_game requires a game id")
		}
	case GameAction:
		switch m.Action {
		case ActionStartGame, ActionMoveUnit, ActionAttack, ActionEndTurn:
		default:
			return errf("unknown game action %q", m.Action)
		}
	}
	return nil
}
