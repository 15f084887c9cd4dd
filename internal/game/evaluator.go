package game

import (
	"sort"

	"github.com/feltround/holdem/internal/deck"
)

// HandCategory is a coarse hand strength, 0 (high card) through 9 (royal
// flush). Categories deliberately carry no kicker information: two hands in
// the same category tie and split the pot.
type HandCategory int

const (
	HighCard HandCategory = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (hc HandCategory) String() string {
	switch hc {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Evaluate categorizes the best hand formed by the given cards, normally the
// two hole cards plus up to five community cards. Fewer than five community
// cards is fine; a hand that collapses before the river is still ranked over
// whatever board exists.
func Evaluate(cards []deck.Card) HandCategory {
	var rankCounts [14]int // indexed by wire rank, 1=Ace
	var suitCounts [4]int
	var high [15]bool // ranks with aces counted high, for straights
	hasAce := false
	hasKing := false
	for _, c := range cards {
		rankCounts[c.Rank]++
		suitCounts[c.Suit]++
		high[c.Rank.High()] = true
		if c.Rank == deck.Ace {
			hasAce = true
		}
		if c.Rank == deck.King {
			hasKing = true
		}
	}

	isFlush := false
	for _, n := range suitCounts {
		if n >= 5 {
			isFlush = true
			break
		}
	}
	isStraight := checkStraight(high)

	// Group sizes, largest first, for pair/trips/quads detection.
	groups := make([]int, 0, len(cards))
	for _, n := range rankCounts {
		if n > 0 {
			groups = append(groups, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(groups)))

	switch {
	case isFlush && isStraight && hasAce && hasKing:
		return RoyalFlush
	case isFlush && isStraight:
		return StraightFlush
	case groups[0] == 4:
		return FourOfAKind
	case groups[0] == 3 && len(groups) > 1 && groups[1] >= 2:
		return FullHouse
	case isFlush:
		return Flush
	case isStraight:
		return Straight
	case groups[0] == 3:
		return ThreeOfAKind
	case groups[0] == 2 && len(groups) > 1 && groups[1] == 2:
		return TwoPair
	case groups[0] == 2:
		return Pair
	default:
		return HighCard
	}
}

// checkStraight looks for five consecutive ranks in the ace-high presence
// set. Aces play high, with the wheel (A-2-3-4-5) as the one low exception.
func checkStraight(present [15]bool) bool {
	if present[14] && present[2] && present[3] && present[4] && present[5] {
		return true
	}
	run := 0
	for r := 2; r <= 14; r++ {
		if present[r] {
			run++
			if run >= 5 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
