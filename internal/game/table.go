package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/feltround/holdem/internal/deck"
)

// Round represents the stage of a hand. Rounds only move forward, or jump
// straight to Ended when a single non-folded player remains.
type Round int

const (
	Waiting Round = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	Ended
)

func (r Round) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown", "ended"}[r]
}

// Winner records a payout at hand end.
type Winner struct {
	PlayerID int64
	Username string
	Amount   int
}

// ActionResult describes a committed player action.
type ActionResult struct {
	Player        *Player
	Action        Action
	Amount        int // call: chips paid; bet: bet size; raise: new total this street
	HasAmount     bool
	RoundComplete bool
}

// RoundResult describes the outcome of advancing the hand: either a new
// street or the end of the hand with its winners.
type RoundResult struct {
	Ended   bool
	Round   Round
	Winners []Winner
}

// RemoveResult describes the fallout of removing a seat mid-hand.
type RemoveResult struct {
	Removed       bool
	RoundComplete bool
	HandEnded     *RoundResult // non-nil when the removal ended the hand
}

// AvailableActions is the legal-move summary for the acting player.
type AvailableActions struct {
	CanFold  bool
	CanCheck bool
	CanCall  bool
	CanBet   bool
	CanRaise bool
	MinBet   int
	MinRaise int
}

// Table owns the full state of one hand: seats, deck, board, pot and the
// betting round. A room holds at most one Table at a time; it is created by
// the start of a hand and replaced by the next one.
//
// Chips in flight stay on Player.CurrentBet until the street ends, when they
// are collected into the pot. Outside of payout, pot + stacks + current bets
// is invariant.
type Table struct {
	rng        *rand.Rand
	players    []*Player // ordered by seat
	deck       *deck.Deck
	community  []deck.Card
	pot        int
	round      Round
	dealer     int
	sbPos      int
	bbPos      int
	smallBlind int
	bigBlind   int
	current    int
	betting    *BettingRound
	active     bool
	winners    []Winner
}

// NewTable seats the players for a hand. Blinds must satisfy
// smallBlind < bigBlind.
func NewTable(rng *rand.Rand, players []*Player, smallBlind, bigBlind int) (*Table, error) {
	if smallBlind >= bigBlind {
		return nil, fmt.Errorf("small blind %d must be less than big blind %d", smallBlind, bigBlind)
	}
	return &Table{
		rng:        rng,
		players:    players,
		smallBlind: smallBlind,
		bigBlind:   bigBlind,
		round:      Waiting,
	}, nil
}

// StartHand posts blinds, deals hole cards and opens preflop betting.
// prevDealer is the dealer index of the previous hand, or -1 for the first
// hand, which picks a random seat.
func (t *Table) StartHand(prevDealer int) error {
	n := len(t.players)
	if n < 2 {
		return ErrNotEnoughPlayers
	}
	if n > 8 {
		return ErrTableFull
	}

	t.pot = 0
	t.community = nil
	t.winners = nil
	t.betting = NewBettingRound(t.bigBlind)
	for _, p := range t.players {
		p.HoleCards = nil
		p.CurrentBet = 0
		p.Folded = false
		p.LastAction = ActionNone
		p.HandRank = -1
		p.StartStack = p.Stack
	}

	if prevDealer < 0 {
		t.dealer = t.rng.IntN(n)
	} else {
		t.dealer = (prevDealer + 1) % n
	}

	if n == 2 {
		// Heads-up: the dealer posts the small blind
		t.sbPos = t.dealer
		t.bbPos = (t.dealer + 1) % n
	} else {
		t.sbPos = (t.dealer + 1) % n
		t.bbPos = (t.dealer + 2) % n
	}
	t.postBlind(t.sbPos, t.smallBlind)
	posted := t.postBlind(t.bbPos, t.bigBlind)
	t.betting.LastBet = posted

	t.deck = deck.New(t.rng)
	// One card at a time around the table, twice
	for i := 0; i < 2; i++ {
		for _, p := range t.players {
			c, err := t.deck.Draw()
			if err != nil {
				t.abort()
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			p.HoleCards = append(p.HoleCards, c)
		}
	}

	t.active = true
	t.round = Preflop
	t.current = (t.bbPos + 1) % n
	if !t.players[t.current].CanAct() {
		t.moveToNextPlayer()
	}
	return nil
}

// postBlind moves a forced bet into the player's current bet, capped at
// their stack (a short stack is forced all-in, never an error). Returns the
// amount actually posted.
func (t *Table) postBlind(pos, amount int) int {
	p := t.players[pos]
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.CurrentBet = amount
	return amount
}

// PlayerAction validates and applies an action for the acting player.
// On error nothing changes and the caller reports it to the actor alone.
func (t *Table) PlayerAction(playerID int64, action Action, amount int) (*ActionResult, error) {
	if !t.active {
		return nil, ErrGameNotActive
	}
	p := t.players[t.current]
	if p.ID != playerID {
		return nil, ErrNotYourTurn
	}

	res := &ActionResult{Player: p, Action: action}
	switch action {
	case Fold:
		t.betting.Fold(p)
	case Check:
		if err := t.betting.Check(p); err != nil {
			return nil, err
		}
	case Call:
		res.Amount = t.betting.Call(p)
		res.HasAmount = true
	case Bet:
		if err := t.betting.Bet(p, amount); err != nil {
			return nil, err
		}
		res.Amount = amount
		res.HasAmount = true
	case Raise:
		if _, err := t.betting.Raise(p, amount); err != nil {
			return nil, err
		}
		res.Amount = p.CurrentBet
		res.HasAmount = true
	default:
		return nil, ErrInvalidAction
	}

	advanced := t.moveToNextPlayer()
	res.RoundComplete = !advanced || t.betting.Complete(t.players)
	return res, nil
}

// moveToNextPlayer advances the turn to the next seat that can still act,
// wrapping around the table. Returns false when no other eligible seat
// exists.
func (t *Table) moveToNextPlayer() bool {
	n := len(t.players)
	start := t.current
	for {
		t.current = (t.current + 1) % n
		if t.current == start {
			return false
		}
		if t.players[t.current].CanAct() {
			return true
		}
	}
}

// AdvanceRound moves the hand forward once the betting round is complete:
// deal the next street, or run the showdown after the river, or pay the last
// player standing. When every remaining player is all-in the showdown runs
// immediately since nobody can act.
func (t *Table) AdvanceRound() (*RoundResult, error) {
	if !t.active {
		return nil, ErrGameNotActive
	}

	actives := t.activePlayers()
	if len(actives) <= 1 {
		return t.payoutLastStanding(), nil
	}
	allIn := true
	for _, p := range actives {
		if p.Stack > 0 {
			allIn = false
			break
		}
	}
	if allIn || t.round == River {
		return t.showdown(), nil
	}

	var dealErr error
	switch t.round {
	case Preflop:
		t.round = Flop
		dealErr = t.dealCommunity(3)
	case Flop:
		t.round = Turn
		dealErr = t.dealCommunity(1)
	case Turn:
		t.round = River
		dealErr = t.dealCommunity(1)
	default:
		return nil, fmt.Errorf("cannot advance from round %s", t.round)
	}
	if dealErr != nil {
		t.abort()
		return nil, fmt.Errorf("dealing community cards: %w", dealErr)
	}

	t.collectBets()
	for _, p := range t.players {
		p.LastAction = ActionNone
	}
	t.betting.Reset()

	// First to act: after the dealer with 3+ players, the dealer heads-up
	if len(actives) >= 3 {
		t.current = (t.dealer + 1) % len(t.players)
	} else {
		t.current = t.dealer
	}
	if !t.players[t.current].CanAct() {
		t.moveToNextPlayer()
	}
	return &RoundResult{Round: t.round}, nil
}

func (t *Table) dealCommunity(n int) error {
	for i := 0; i < n; i++ {
		c, err := t.deck.Draw()
		if err != nil {
			return err
		}
		t.community = append(t.community, c)
	}
	return nil
}

// collectBets folds the in-flight bets of the finished street into the pot.
func (t *Table) collectBets() {
	for _, p := range t.players {
		t.pot += p.CurrentBet
		p.CurrentBet = 0
	}
}

// showdown ranks every non-folded player's hand and splits the pot among the
// holders of the best category. The split uses integer division; a remainder
// chip is not distributed.
func (t *Table) showdown() *RoundResult {
	t.round = Showdown
	t.collectBets()

	best := HandCategory(-1)
	var holders []*Player
	for _, p := range t.players {
		if p.Folded {
			continue
		}
		cards := make([]deck.Card, 0, len(p.HoleCards)+len(t.community))
		cards = append(cards, p.HoleCards...)
		cards = append(cards, t.community...)
		p.HandRank = Evaluate(cards)
		if p.HandRank > best {
			best = p.HandRank
			holders = holders[:0]
			holders = append(holders, p)
		} else if p.HandRank == best {
			holders = append(holders, p)
		}
	}

	share := t.pot / len(holders)
	for _, w := range holders {
		w.Stack += share
		t.winners = append(t.winners, Winner{PlayerID: w.ID, Username: w.Username, Amount: share})
	}

	t.active = false
	t.round = Ended
	return &RoundResult{Ended: true, Round: t.round, Winners: t.winners}
}

// payoutLastStanding awards the whole pot to the sole remaining player
// without evaluating hands.
func (t *Table) payoutLastStanding() *RoundResult {
	t.collectBets()
	if actives := t.activePlayers(); len(actives) == 1 {
		w := actives[0]
		w.Stack += t.pot
		t.winners = append(t.winners, Winner{PlayerID: w.ID, Username: w.Username, Amount: t.pot})
	}
	t.active = false
	t.round = Ended
	return &RoundResult{Ended: true, Round: t.round, Winners: t.winners}
}

// RemovePlayer takes a seat out of the table entirely. If the removed player
// was due to act the turn advances first. Removing down to a single
// non-folded player ends the hand on the spot.
func (t *Table) RemovePlayer(playerID int64) RemoveResult {
	idx := -1
	for i, p := range t.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return RemoveResult{}
	}

	wasActive := t.active
	if wasActive && idx == t.current {
		t.moveToNextPlayer()
	}
	// The leaving seat's chips in flight belong to the pot
	t.pot += t.players[idx].CurrentBet
	t.players[idx].CurrentBet = 0
	t.players = append(t.players[:idx], t.players[idx+1:]...)
	n := len(t.players)
	t.current = reindex(t.current, idx, n)
	t.dealer = reindex(t.dealer, idx, n)
	t.sbPos = reindex(t.sbPos, idx, n)
	t.bbPos = reindex(t.bbPos, idx, n)

	res := RemoveResult{Removed: true}
	if wasActive {
		if len(t.activePlayers()) <= 1 {
			res.HandEnded = t.payoutLastStanding()
		} else if t.betting.Complete(t.players) {
			res.RoundComplete = true
		}
	}
	return res
}

// reindex keeps a positional index pointing at the same seat after the seat
// at removed has been spliced out.
func reindex(i, removed, n int) int {
	if i > removed {
		i--
	}
	if n > 0 && i >= n {
		i = 0
	}
	return i
}

func (t *Table) activePlayers() []*Player {
	var actives []*Player
	for _, p := range t.players {
		if !p.Folded {
			actives = append(actives, p)
		}
	}
	return actives
}

// abort rolls the hand back to its starting stacks after an unrecoverable
// invariant violation. No chips move; no winners are recorded.
func (t *Table) abort() {
	for _, p := range t.players {
		p.Stack = p.StartStack
		p.CurrentBet = 0
		p.HoleCards = nil
	}
	t.pot = 0
	t.community = nil
	t.winners = nil
	t.active = false
	t.round = Ended
}

// Active reports whether a hand is in progress.
func (t *Table) Active() bool { return t.active }

// Round returns the current stage of the hand.
func (t *Table) Round() Round { return t.round }

// Players returns the seats in order.
func (t *Table) Players() []*Player { return t.players }

// Community returns the dealt community cards.
func (t *Table) Community() []deck.Card { return t.community }

// PotTotal returns the pot including bets not yet collected from the
// current street.
func (t *Table) PotTotal() int {
	total := t.pot
	for _, p := range t.players {
		total += p.CurrentBet
	}
	return total
}

// CurrentPlayer returns the acting player, or nil when no hand is active.
func (t *Table) CurrentPlayer() *Player {
	if !t.active {
		return nil
	}
	return t.players[t.current]
}

// DealerIndex returns the dealer seat index.
func (t *Table) DealerIndex() int { return t.dealer }

// SmallBlind returns the small blind amount.
func (t *Table) SmallBlind() int { return t.smallBlind }

// BigBlind returns the big blind amount.
func (t *Table) BigBlind() int { return t.bigBlind }

// Winners returns the payouts recorded at hand end.
func (t *Table) Winners() []Winner { return t.winners }

// AvailableActions summarizes the legal moves for the acting player.
func (t *Table) AvailableActions() AvailableActions {
	if !t.active {
		return AvailableActions{}
	}
	p := t.players[t.current]
	lastBet := t.betting.LastBet
	return AvailableActions{
		CanFold:  true,
		CanCheck: lastBet == 0 || p.CurrentBet == lastBet,
		CanCall:  lastBet > 0 && p.CurrentBet < lastBet,
		CanBet:   lastBet == 0 && p.Stack > 0,
		CanRaise: lastBet > 0 && p.Stack > 0,
		MinBet:   t.bigBlind,
		MinRaise: t.betting.MinRaise,
	}
}
