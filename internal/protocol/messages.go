// Package protocol defines the JSON message contract between the room
// server and its clients. Every frame is an envelope with a type
// discriminator; outbound payloads ride under "data".
package protocol

import "github.com/feltround/holdem/internal/deck"

// Message types crossing the session channel.
const (
	// Client -> Server
	TypeAction    = "action"
	TypeStartGame = "startGame"
	TypeChat      = "chat"

	// Server -> Client
	TypeGameState    = "gameState"
	TypePlayerJoined = "playerJoined"
	TypePlayerLeft   = "playerLeft"
	TypeGameStarted  = "gameStarted"
	TypeRoundStarted = "roundStarted"
	TypePlayerAction = "playerAction"
	TypeTurnChanged  = "turnChanged"
	TypeGameEnded    = "gameEnded"
	TypeError        = "error"
)

// Inbound is a client frame. Fields beyond Type are populated per type:
// Action/Amount for "action", Message for "chat".
type Inbound struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	Message string `json:"message,omitempty"`
}

// Message is a server frame. Error frames carry Message; everything else
// carries a payload under Data.
type Message struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewError builds an error frame, routed only to the offending session.
func NewError(message string) *Message {
	return &Message{Type: TypeError, Message: message}
}

// Member is a room roster entry.
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Money    int    `json:"money"`
	Seat     int    `json:"seat"`
}

// PlayerState is one seat in a game snapshot. Cards are filled in
// per-recipient: a player always sees their own, and everyone else's only
// from the showdown on.
type PlayerState struct {
	ID         int64       `json:"id"`
	Username   string      `json:"username"`
	Money      int         `json:"money"`
	CurrentBet int         `json:"currentBet"`
	Folded     bool        `json:"folded"`
	LastAction string      `json:"lastAction,omitempty"`
	Seat       int         `json:"seat"`
	Cards      []deck.Card `json:"cards,omitempty"`
	HandRank   *int        `json:"handRank,omitempty"`
}

// Winner is a payout entry at hand end.
type Winner struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	WinAmount int    `json:"winAmount"`
}

// GameState is the authoritative table snapshot pushed after every change.
type GameState struct {
	IsActive       bool          `json:"isActive"`
	Round          string        `json:"round"`
	Pot            int           `json:"pot"`
	CommunityCards []deck.Card   `json:"communityCards"`
	CurrentPlayer  *int64        `json:"currentPlayer"`
	Players        []PlayerState `json:"players"`
	SmallBlind     int           `json:"smallBlind"`
	BigBlind       int           `json:"bigBlind"`
	DealerPosition int           `json:"dealerPosition"`
	CanFold        bool          `json:"canFold,omitempty"`
	CanCheck       bool          `json:"canCheck,omitempty"`
	CanCall        bool          `json:"canCall,omitempty"`
	CanBet         bool          `json:"canBet,omitempty"`
	CanRaise       bool          `json:"canRaise,omitempty"`
	MinBet         int           `json:"minBet,omitempty"`
	MinRaise       *int          `json:"minRaise,omitempty"`
	Winners        []Winner      `json:"winners,omitempty"`
}

// PlayerJoinedData is broadcast when a session connects; PlayerLeftData when
// one leaves outside a hand.
type PlayerJoinedData struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	Players  []Member `json:"players"`
}

type PlayerLeftData struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	Players  []Member `json:"players"`
}

// PlayerActionData announces a committed action before the refreshed state.
type PlayerActionData struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Action   string `json:"action"`
	Amount   *int   `json:"amount,omitempty"`
}

// RoundStartedData announces a new street.
type RoundStartedData struct {
	RoundName string    `json:"roundName"`
	GameState GameState `json:"gameState"`
}

// TurnChangedData announces whose turn it is and how long they have.
type TurnChangedData struct {
	CurrentPlayer int64     `json:"currentPlayer"`
	TimeLimit     int       `json:"timeLimit"`
	GameState     GameState `json:"gameState"`
}

// ChatData relays a chat line to the room.
type ChatData struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
