// Package protocol defines the closed catalogue of wire messages exchanged
// between clients and the session server, their tagged JSON encoding, and the
// length-prefixed framing that delimits them on a stream socket.
package protocol

import "goldenbrigade/server/internal/game"

// Type discriminates the tagged message union.
type Type string

const (
	// Client to server.
	TypeRegister   Type = "register"
	TypeCreateGame Type = "create_game"
	TypeJoinGame   Type = "join_game"
	TypeListGames  Type = "list_games"
	TypeGameAction Type = "game_action"
	TypeDisconnect Type = "disconnect"

	// Server to client.
	TypeRegisterAck    Type = "register_ack"
	TypeGameCreated    Type = "game_created"
	TypeJoinResponse   Type = "join_response"
	TypeGameList       Type = "game_list"
	TypeActionResponse Type = "action_response"
	TypeGameState      Type = "game_state"
	TypePlayerJoined   Type = "player_joined"
	TypePlayerLeft     Type = "player_left"
	TypeGameStarted    Type = "game_started"
	TypeTurnChanged    Type = "turn_changed"
	TypeUnitMoved      Type = "unit_moved"
	TypeAttackResult   Type = "attack_result"
	TypeGameEnded      Type = "game_ended"

	// Both directions.
	TypeChat Type = "chat"
)

// Action discriminates the game_action sub-union.
type Action string

const (
	ActionStartGame Action = "start_game"
	ActionMoveUnit  Action = "move_unit"
	ActionAttack    Action = "attack"
	ActionEndTurn   Action = "end_turn"
)

// Status values carried by acknowledgement messages.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Message is one member of the tagged union. Messages are immutable once
// constructed; mutation means building a replacement.
type Message interface {
	Kind() Type
}

// Register is the mandatory first message on a fresh connection.
type Register struct {
	Type Type   `json:"type"`
	Name string `json:"name"`
}

func (Register) Kind() Type { return TypeRegister }

// RegisterAck confirms registration and carries the assigned client id.
type RegisterAck struct {
	Type     Type   `json:"type"`
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
}

func (RegisterAck) Kind() Type { return TypeRegisterAck }

// CreateGame asks the server to open a new session hosted by the sender.
type CreateGame struct {
	Type Type `json:"type"`
}

func (CreateGame) Kind() Type { return TypeCreateGame }

// GameCreated confirms session creation.
type GameCreated struct {
	Type   Type   `json:"type"`
	GameID string `json:"game_id"`
}

func (GameCreated) Kind() Type { return TypeGameCreated }

// JoinGame asks to join an existing waiting session.
type JoinGame struct {
	Type   Type   `json:"type"`
	GameID string `json:"game_id"`
}

func (JoinGame) Kind() Type { return TypeJoinGame }

// JoinResponse reports the outcome of a join attempt.
type JoinResponse struct {
	Type    Type         `json:"type"`
	Status  string       `json:"status"`
	GameID  string       `json:"game_id,omitempty"`
	Faction game.Faction `json:"faction,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (JoinResponse) Kind() Type { return TypeJoinResponse }

// ListGames requests the lobby listing.
type ListGames struct {
	Type Type `json:"type"`
}

func (ListGames) Kind() Type { return TypeListGames }

// GameSummary is one row of the lobby listing.
type GameSummary struct {
	ID         string `json:"id"`
	Host       string `json:"host"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	CreatedAt  int64  `json:"created_at"`
}

// GameList carries every joinable session.
type GameList struct {
	Type  Type          `json:"type"`
	Games []GameSummary `json:"games"`
}

func (GameList) Kind() Type { return TypeGameList }

// ActionData carries the action-specific parameters of a GameAction.
// Coordinate fields are meaningful only for the action that names them.
type ActionData struct {
	MapType   string `json:"map_type,omitempty"`
	FromX     int    `json:"from_x"`
	FromY     int    `json:"from_y"`
	ToX       int    `json:"to_x"`
	ToY       int    `json:"to_y"`
	AttackerX int    `json:"attacker_x"`
	AttackerY int    `json:"attacker_y"`
	DefenderX int    `json:"defender_x"`
	DefenderY int    `json:"defender_y"`
}

// GameAction submits one in-session action for authoritative validation.
type GameAction struct {
	Type   Type       `json:"type"`
	Action Action     `json:"action"`
	Data   ActionData `json:"data"`
}

func (GameAction) Kind() Type { return TypeGameAction }

// ActionResponse reports a rejected or acknowledged action to the submitter only.
type ActionResponse struct {
	Type    Type   `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (ActionResponse) Kind() Type { return TypeActionResponse }

// PlayerInfo mirrors one session member in a state snapshot.
type PlayerInfo struct {
	Name    string       `json:"name"`
	Faction game.Faction `json:"faction"`
	Ready   bool         `json:"ready"`
}

// MapState is the terrain snapshot carried inside a GameState.
type MapState struct {
	Width   int                     `json:"width"`
	Height  int                     `json:"height"`
	Terrain map[string]game.Terrain `json:"terrain"`
}

// GameState is the full-state broadcast; clients replace their local view
// wholesale on receipt.
type GameState struct {
	Type              Type                 `json:"type"`
	GameID            string               `json:"game_id"`
	State             string               `json:"state"`
	Turn              int                  `json:"turn"`
	CurrentPlayer     string               `json:"current_player,omitempty"`
	CurrentPlayerName string               `json:"current_player_name,omitempty"`
	Players           map[string]PlayerInfo `json:"players"`
	Map               *MapState            `json:"map,omitempty"`
	Units             map[string]game.Unit `json:"units,omitempty"`
}

func (GameState) Kind() Type { return TypeGameState }

// PlayerJoined notifies existing members of a new arrival.
type PlayerJoined struct {
	Type       Type   `json:"type"`
	PlayerName string `json:"player_name"`
	PlayerID   string `json:"player_id"`
}

func (PlayerJoined) Kind() Type { return TypePlayerJoined }

// PlayerLeft notifies survivors of a departure.
type PlayerLeft struct {
	Type       Type   `json:"type"`
	PlayerName string `json:"player_name"`
	PlayerID   string `json:"player_id"`
}

func (PlayerLeft) Kind() Type { return TypePlayerLeft }

// GameStarted announces the transition to active play.
type GameStarted struct {
	Type        Type   `json:"type"`
	FirstPlayer string `json:"first_player"`
	Turn        int    `json:"turn"`
}

func (GameStarted) Kind() Type { return TypeGameStarted }

// TurnChanged announces the next current-turn holder.
type TurnChanged struct {
	Type     Type   `json:"type"`
	Player   string `json:"player"`
	PlayerID string `json:"player_id"`
	Turn     int    `json:"turn"`
}

func (TurnChanged) Kind() Type { return TypeTurnChanged }

// UnitMoved is the narrow event for an accepted relocation.
type UnitMoved struct {
	Type Type       `json:"type"`
	From game.Coord `json:"from"`
	To   game.Coord `json:"to"`
	Unit game.Unit  `json:"unit"`
}

func (UnitMoved) Kind() Type { return TypeUnitMoved }

// AttackResult is the narrow event for a resolved attack. Damage is present
// only when the result is "damaged".
type AttackResult struct {
	Type     Type       `json:"type"`
	Attacker game.Coord `json:"attacker"`
	Defender game.Coord `json:"defender"`
	Result   string     `json:"result"`
	Damage   int        `json:"damage,omitempty"`
}

func (AttackResult) Kind() Type { return TypeAttackResult }

// GameEnded announces session termination with a human-readable reason.
type GameEnded struct {
	Type   Type         `json:"type"`
	Reason string       `json:"reason"`
	Winner game.Faction `json:"winner,omitempty"`
}

func (GameEnded) Kind() Type { return TypeGameEnded }

// Chat is fanned out to every member of the sender's session.
type Chat struct {
	Type      Type   `json:"type"`
	Sender    string `json:"sender,omitempty"`
	Text      string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func (Chat) Kind() Type { return TypeChat }

// Disconnect announces a graceful client departure.
type Disconnect struct {
	Type Type `json:"type"`
}

func (Disconnect) Kind() Type { return TypeDisconnect }

// Constructors set the discriminator so callers cannot build a half-tagged message.

func NewRegister(name string) Register { return Register{Type: TypeRegister, Name: name} }

func NewRegisterAck(clientID, status string) RegisterAck {
	return RegisterAck{Type: TypeRegisterAck, ClientID: clientID, Status: status}
}

func NewCreateGame() CreateGame { return CreateGame{Type: TypeCreateGame} }

func NewGameCreated(gameID string) GameCreated {
	return GameCreated{Type: TypeGameCreated, GameID: gameID}
}

func NewJoinGame(gameID string) JoinGame { return JoinGame{Type: TypeJoinGame, GameID: gameID} }

func NewListGames() ListGames { return ListGames{Type: TypeListGames} }

func NewStartGame(mapType string) GameAction {
	return GameAction{Type: TypeGameAction, Action: ActionStartGame, Data: ActionData{MapType: mapType}}
}

func NewMoveUnit(from, to game.Coord) GameAction {
	return GameAction{Type: TypeGameAction, Action: ActionMoveUnit, Data: ActionData{
		FromX: from.X, FromY: from.Y, ToX: to.X, ToY: to.Y,
	}}
}

func NewAttack(attacker, defender game.Coord) GameAction {
	return GameAction{Type: TypeGameAction, Action: ActionAttack, Data: ActionData{
		AttackerX: attacker.X, AttackerY: attacker.Y, DefenderX: defender.X, DefenderY: defender.Y,
	}}
}

func NewEndTurn() GameAction {
	return GameAction{Type: TypeGameAction, Action: ActionEndTurn}
}

func NewChat(sender, text string, timestamp int64) Chat {
	return Chat{Type: TypeChat, Sender: sender, Text: text, Timestamp: timestamp}
}

func NewDisconnect() Disconnect { return Disconnect{Type: TypeDisconnect} }
