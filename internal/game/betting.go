package game

// BettingRound tracks the bet-to-match state for one street. Per-player
// state (CurrentBet, LastAction) lives on the players themselves.
type BettingRound struct {
	LastBet  int // highest total contribution any player has made this street
	MinRaise int
	bigBlind int
}

// NewBettingRound creates betting state for a fresh hand. The minimum raise
// starts at the big blind.
func NewBettingRound(bigBlind int) *BettingRound {
	return &BettingRound{MinRaise: bigBlind, bigBlind: bigBlind}
}

// Reset prepares the betting state for a new street.
func (br *BettingRound) Reset() {
	br.LastBet = 0
	br.MinRaise = br.bigBlind
}

// Fold marks the player as folded.
func (br *BettingRound) Fold(p *Player) {
	p.Folded = true
	p.LastAction = Fold
}

// Check is legal only when there is nothing to match.
func (br *BettingRound) Check(p *Player) error {
	if br.LastBet != 0 && p.CurrentBet != br.LastBet {
		return ErrInvalidAction
	}
	p.LastAction = Check
	return nil
}

// Call matches the current bet, capped at the player's stack. A call for the
// whole stack is an all-in and is never an error.
func (br *BettingRound) Call(p *Player) int {
	toCall := br.LastBet - p.CurrentBet
	if toCall > p.Stack {
		toCall = p.Stack
	}
	p.Stack -= toCall
	p.CurrentBet += toCall
	p.LastAction = Call
	return toCall
}

// Bet opens the betting on a street. Illegal once a bet exists; the floor is
// the big blind.
func (br *BettingRound) Bet(p *Player, amount int) error {
	if br.LastBet > 0 {
		return ErrInvalidAction
	}
	if amount < br.bigBlind {
		return ErrBelowMinimum
	}
	if amount > p.Stack {
		return ErrInsufficientFunds
	}
	p.Stack -= amount
	p.CurrentBet = amount
	p.LastAction = Bet
	br.LastBet = amount
	br.MinRaise = amount
	return nil
}

// Raise increases an existing bet. amount is the increment above the call,
// not the total; the player's total contribution this street becomes
// call + amount. The next minimum raise matches the increment just used.
func (br *BettingRound) Raise(p *Player, amount int) (int, error) {
	if br.LastBet == 0 {
		return 0, ErrInvalidAction
	}
	toCall := br.LastBet - p.CurrentBet
	total := toCall + amount
	if p.CurrentBet+total < br.LastBet+br.MinRaise {
		return 0, ErrBelowMinimum
	}
	if total > p.Stack {
		return 0, ErrInsufficientFunds
	}
	p.Stack -= total
	p.CurrentBet += total
	p.LastAction = Raise
	br.LastBet = p.CurrentBet
	br.MinRaise = amount
	return total, nil
}

// Complete reports whether the betting round is over: either a single
// non-folded player remains, or every non-folded player still holding chips
// has acted and matched the current bet. All-in players cannot act again and
// never hold a round open.
func (br *BettingRound) Complete(players []*Player) bool {
	remaining := 0
	for _, p := range players {
		if !p.Folded {
			remaining++
		}
	}
	if remaining <= 1 {
		return true
	}
	for _, p := range players {
		if p.Folded || p.Stack == 0 {
			continue
		}
		if p.LastAction == ActionNone {
			return false
		}
		if p.CurrentBet < br.LastBet {
			return false
		}
	}
	return true
}
