package game

import "github.com/feltround/holdem/internal/deck"

// Action represents a player action
type Action int

const (
	ActionNone Action = iota
	Fold
	Check
	Call
	Bet
	Raise
)

var actionNames = [...]string{"", "fold", "check", "call", "bet", "raise"}

func (a Action) String() string {
	if a < ActionNone || a > Raise {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction maps a wire action name to an Action. Returns false for
// anything outside the fold/check/call/bet/raise set.
func ParseAction(name string) (Action, bool) {
	for i := int(Fold); i <= int(Raise); i++ {
		if actionNames[i] == name {
			return Action(i), true
		}
	}
	return ActionNone, false
}

// Player represents one seat in a hand. Entries are built from the room
// roster when a hand starts and discarded when it ends; only the stack delta
// survives, written back to the balance store.
type Player struct {
	ID         int64
	Username   string
	Seat       int
	Stack      int
	StartStack int // stack at hand start, used for the balance delta
	HoleCards  []deck.Card
	CurrentBet int // chips committed this betting round
	Folded     bool
	LastAction Action
	HandRank   HandCategory // set at showdown, -1 before
}

// CanAct reports whether the player can still take betting actions.
func (p *Player) CanAct() bool {
	return !p.Folded && p.Stack > 0
}
