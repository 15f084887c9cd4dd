package game

import (
	"testing"

	"github.com/feltround/holdem/internal/randutil"
)

func seatPlayers(stacks ...int) []*Player {
	players := make([]*Player, 0, len(stacks))
	for i, stack := range stacks {
		players = append(players, &Player{
			ID:       int64(i + 1),
			Username: string(rune('A' + i)),
			Seat:     i,
			Stack:    stack,
		})
	}
	return players
}

func mustTable(t *testing.T, players []*Player, sb, bb int) *Table {
	t.Helper()
	tbl, err := NewTable(randutil.New(7), players, sb, bb)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return tbl
}

func sumChips(tbl *Table) int {
	total := tbl.PotTotal()
	for _, p := range tbl.Players() {
		total += p.Stack
	}
	return total
}

func TestNewTableRejectsBadBlinds(t *testing.T) {
	if _, err := NewTable(randutil.New(1), seatPlayers(1000, 1000), 20, 20); err == nil {
		t.Error("Expected an error for small blind >= big blind")
	}
}

func TestStartHandPlayerCountLimits(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000), 10, 20)
	if err := tbl.StartHand(-1); err != ErrNotEnoughPlayers {
		t.Errorf("Expected ErrNotEnoughPlayers, got %v", err)
	}

	stacks := make([]int, 9)
	for i := range stacks {
		stacks[i] = 1000
	}
	tbl = mustTable(t, seatPlayers(stacks...), 10, 20)
	if err := tbl.StartHand(-1); err != ErrTableFull {
		t.Errorf("Expected ErrTableFull, got %v", err)
	}
}

func TestBlindPositions(t *testing.T) {
	// Heads-up the dealer posts the small blind; with more players the
	// blinds sit left of the dealer.
	for n := 2; n <= 8; n++ {
		stacks := make([]int, n)
		for i := range stacks {
			stacks[i] = 1000
		}
		tbl := mustTable(t, seatPlayers(stacks...), 10, 20)
		if err := tbl.StartHand(n - 1); err != nil {
			t.Fatalf("StartHand with %d players failed: %v", n, err)
		}
		dealer := tbl.DealerIndex()
		if dealer != 0 {
			t.Fatalf("Expected dealer 0 after previous dealer %d, got %d", n-1, dealer)
		}

		sb, bb := 1, 2
		if n == 2 {
			sb, bb = 0, 1
		}
		players := tbl.Players()
		if players[sb].CurrentBet != 10 {
			t.Errorf("%d players: expected seat %d to post 10, got %d", n, sb, players[sb].CurrentBet)
		}
		if players[bb].CurrentBet != 20 {
			t.Errorf("%d players: expected seat %d to post 20, got %d", n, bb, players[bb].CurrentBet)
		}
		for i, p := range players {
			if i != sb && i != bb && p.CurrentBet != 0 {
				t.Errorf("%d players: seat %d should post nothing, posted %d", n, i, p.CurrentBet)
			}
		}
	}
}

func TestStartHandDealsTwoCardsEach(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(-1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, p := range tbl.Players() {
		if len(p.HoleCards) != 2 {
			t.Errorf("Player %d has %d hole cards", p.ID, len(p.HoleCards))
		}
		for _, c := range p.HoleCards {
			if seen[c.String()] {
				t.Errorf("Card %s dealt twice", c)
			}
			seen[c.String()] = true
		}
	}
	if tbl.Round() != Preflop {
		t.Errorf("Expected preflop, got %s", tbl.Round())
	}
}

func TestHeadsUpCallAndCheckToFlop(t *testing.T) {
	// Two players, 1000 chips each, blinds 10/20. The dealer calls, the
	// big blind checks, and the flop comes with a 40 chip pot.
	tbl := mustTable(t, seatPlayers(1000, 1000), 10, 20)
	if err := tbl.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	if tbl.DealerIndex() != 0 {
		t.Fatalf("Expected dealer 0, got %d", tbl.DealerIndex())
	}
	// Heads-up preflop the dealer acts first
	if tbl.CurrentPlayer().ID != 1 {
		t.Fatalf("Expected player 1 to act, got %d", tbl.CurrentPlayer().ID)
	}

	res, err := tbl.PlayerAction(1, Call, 0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Amount != 10 {
		t.Errorf("Expected a call of 10, got %d", res.Amount)
	}
	if res.RoundComplete {
		t.Error("Round should wait for the big blind")
	}

	res, err = tbl.PlayerAction(2, Check, 0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.RoundComplete {
		t.Fatal("Round should be complete after the check")
	}

	round, err := tbl.AdvanceRound()
	if err != nil {
		t.Fatalf("AdvanceRound failed: %v", err)
	}
	if round.Round != Flop {
		t.Errorf("Expected flop, got %s", round.Round)
	}
	if len(tbl.Community()) != 3 {
		t.Errorf("Expected 3 community cards, got %d", len(tbl.Community()))
	}
	if tbl.PotTotal() != 40 {
		t.Errorf("Expected pot 40, got %d", tbl.PotTotal())
	}
	for _, p := range tbl.Players() {
		if p.Stack != 980 {
			t.Errorf("Expected player %d stack 980, got %d", p.ID, p.Stack)
		}
	}
}

func TestRejectedActionChangesNothing(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000), 10, 20)
	if err := tbl.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	if _, err := tbl.PlayerAction(1, Call, 0); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if _, err := tbl.PlayerAction(2, Check, 0); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if _, err := tbl.AdvanceRound(); err != nil {
		t.Fatalf("AdvanceRound failed: %v", err)
	}

	// The big blind opens the flop betting with 30 chips behind and tries
	// to bet 50.
	p := tbl.CurrentPlayer()
	p.Stack = 30
	before := *p
	if _, err := tbl.PlayerAction(p.ID, Bet, 50); err != ErrInsufficientFunds {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
	if p.Stack != before.Stack || p.CurrentBet != before.CurrentBet {
		t.Errorf("Rejected action moved chips: stack %d->%d bet %d->%d",
			before.Stack, p.Stack, before.CurrentBet, p.CurrentBet)
	}
	if tbl.CurrentPlayer().ID != p.ID {
		t.Error("Rejected action should not advance the turn")
	}
}

func TestOutOfTurnActionRejected(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(2); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	acting := tbl.CurrentPlayer().ID
	for _, p := range tbl.Players() {
		if p.ID == acting {
			continue
		}
		if _, err := tbl.PlayerAction(p.ID, Fold, 0); err != ErrNotYourTurn {
			t.Errorf("Expected ErrNotYourTurn for player %d, got %v", p.ID, err)
		}
	}
}

func TestCheckDownConservesChips(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(-1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	for steps := 0; tbl.Active(); steps++ {
		if steps > 50 {
			t.Fatal("Hand did not finish")
		}
		if sumChips(tbl) != 3000 {
			t.Fatalf("Chips not conserved mid-hand: %d", sumChips(tbl))
		}

		cp := tbl.CurrentPlayer()
		action := Check
		if !tbl.AvailableActions().CanCheck {
			action = Call
		}
		res, err := tbl.PlayerAction(cp.ID, action, 0)
		if err != nil {
			t.Fatalf("%s by player %d failed: %v", action, cp.ID, err)
		}
		if res.RoundComplete {
			if _, err := tbl.AdvanceRound(); err != nil {
				t.Fatalf("AdvanceRound failed: %v", err)
			}
		}
	}

	if tbl.Round() != Ended {
		t.Fatalf("Expected ended, got %s", tbl.Round())
	}
	winners := tbl.Winners()
	if len(winners) == 0 {
		t.Fatal("Expected at least one winner")
	}

	// An odd split may discard up to len(winners)-1 chips
	total := 0
	for _, p := range tbl.Players() {
		total += p.Stack
	}
	if total > 3000 {
		t.Errorf("Chips created: %d", total)
	}
	if 3000-total >= len(winners) {
		t.Errorf("Lost %d chips with %d winners", 3000-total, len(winners))
	}

	// Every non-folded player got a rank at showdown
	for _, p := range tbl.Players() {
		if !p.Folded && p.HandRank < 0 {
			t.Errorf("Player %d has no hand rank", p.ID)
		}
	}
}

func TestOddPotSplitDiscardsRemainder(t *testing.T) {
	// Both players hold a bare pair, so the coarse categories tie and the
	// 101 chip pot splits 50/50 with one chip discarded.
	players := seatPlayers(500, 500)
	players[0].HoleCards = parseCards(t, "As", "Ah")
	players[1].HoleCards = parseCards(t, "Ks", "Kh")

	tbl := mustTable(t, players, 10, 20)
	tbl.pot = 101
	tbl.round = River
	tbl.active = true
	tbl.community = parseCards(t, "2c", "7d", "9s", "Jh", "3d")

	res := tbl.showdown()
	if !res.Ended {
		t.Fatal("Expected the hand to end")
	}
	if len(res.Winners) != 2 {
		t.Fatalf("Expected 2 winners, got %d", len(res.Winners))
	}
	for _, w := range res.Winners {
		if w.Amount != 50 {
			t.Errorf("Expected each winner to take 50, got %d", w.Amount)
		}
	}
	if players[0].Stack != 550 || players[1].Stack != 550 {
		t.Errorf("Expected stacks 550/550, got %d/%d", players[0].Stack, players[1].Stack)
	}
}

func TestFoldsEndHandWithoutShowdown(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(2); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	// Everyone folds to the big blind
	first := tbl.CurrentPlayer()
	res, err := tbl.PlayerAction(first.ID, Fold, 0)
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	if res.RoundComplete {
		t.Fatal("One fold of three should not end the round")
	}
	second := tbl.CurrentPlayer()
	res, err = tbl.PlayerAction(second.ID, Fold, 0)
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	if !res.RoundComplete {
		t.Fatal("Two folds should complete the round")
	}

	round, err := tbl.AdvanceRound()
	if err != nil {
		t.Fatalf("AdvanceRound failed: %v", err)
	}
	if !round.Ended {
		t.Fatal("Expected the hand to end")
	}
	if len(round.Winners) != 1 {
		t.Fatalf("Expected a single winner, got %d", len(round.Winners))
	}
	// Winner takes both blinds; rank never evaluated
	if round.Winners[0].Amount != 30 {
		t.Errorf("Expected the winner to take 30, got %d", round.Winners[0].Amount)
	}
	for _, p := range tbl.Players() {
		if p.HandRank >= 0 {
			t.Errorf("No hand should be ranked without a showdown, player %d has %s", p.ID, p.HandRank)
		}
	}
}

func TestAllInPlayerIsSkipped(t *testing.T) {
	// The big blind posts their last 15 chips; the dealer keeps acting
	// alone while the all-in player is carried to showdown.
	tbl := mustTable(t, seatPlayers(1000, 15), 10, 20)
	if err := tbl.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	bb := tbl.Players()[1]
	if bb.CurrentBet != 15 || bb.Stack != 0 {
		t.Fatalf("Expected the big blind all-in for 15, bet=%d stack=%d", bb.CurrentBet, bb.Stack)
	}

	for steps := 0; tbl.Active(); steps++ {
		if steps > 20 {
			t.Fatal("Hand did not finish")
		}
		cp := tbl.CurrentPlayer()
		if cp.ID != 1 {
			t.Fatalf("Only the dealer can act, but player %d is up", cp.ID)
		}
		action := Check
		if !tbl.AvailableActions().CanCheck {
			action = Call
		}
		res, err := tbl.PlayerAction(cp.ID, action, 0)
		if err != nil {
			t.Fatalf("%s failed: %v", action, err)
		}
		if res.RoundComplete {
			if _, err := tbl.AdvanceRound(); err != nil {
				t.Fatalf("AdvanceRound failed: %v", err)
			}
		}
	}

	total := 0
	for _, p := range tbl.Players() {
		total += p.Stack
	}
	if total > 1015 {
		t.Errorf("Chips created: %d", total)
	}
	if 1015-total >= 2 {
		t.Errorf("Lost %d chips", 1015-total)
	}
}

func TestRemoveCurrentPlayerAdvancesTurn(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(2); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	leaving := tbl.CurrentPlayer().ID
	res := tbl.RemovePlayer(leaving)
	if !res.Removed {
		t.Fatal("Expected the player to be removed")
	}
	if res.HandEnded != nil {
		t.Fatal("Two players remain, the hand should continue")
	}
	if len(tbl.Players()) != 2 {
		t.Fatalf("Expected 2 seats, got %d", len(tbl.Players()))
	}
	if tbl.CurrentPlayer().ID == leaving {
		t.Error("Removed player still holds the turn")
	}
	for _, p := range tbl.Players() {
		if p.ID == leaving {
			t.Error("Removed player still seated")
		}
	}
}

func TestRemoveDownToOneEndsHand(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000), 10, 20)
	if err := tbl.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	res := tbl.RemovePlayer(1)
	if res.HandEnded == nil {
		t.Fatal("Removing down to one player should end the hand")
	}
	if len(res.HandEnded.Winners) != 1 || res.HandEnded.Winners[0].PlayerID != 2 {
		t.Fatalf("Expected player 2 to win by default, got %+v", res.HandEnded.Winners)
	}
	// The survivor collects both blinds, including the leaver's chips
	if res.HandEnded.Winners[0].Amount != 30 {
		t.Errorf("Expected a 30 chip pot, got %d", res.HandEnded.Winners[0].Amount)
	}
	if got := tbl.Players()[0].Stack; got != 1010 {
		t.Errorf("Expected the survivor to hold 1010, got %d", got)
	}
	if tbl.Active() {
		t.Error("Table should be inactive after the hand ends")
	}
}

func TestRemovedPlayerChipsStayInPot(t *testing.T) {
	// Three players, blinds 10/20. The big blind leaves preflop; their 20
	// chips stay in the pot and the table still balances.
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(2); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	res := tbl.RemovePlayer(tbl.Players()[tbl.bbPos].ID)
	if !res.Removed {
		t.Fatal("Expected the player to be removed")
	}
	if res.HandEnded != nil {
		t.Fatal("Two players remain, the hand should continue")
	}
	if tbl.PotTotal() != 30 {
		t.Errorf("Expected a 30 chip pot after the removal, got %d", tbl.PotTotal())
	}
	// 3000 minus the 980 the leaver walked away with
	if got := sumChips(tbl); got != 2020 {
		t.Errorf("Remaining seats plus pot hold %d chips, want 2020", got)
	}
}

func TestRemoveUnknownPlayer(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000), 10, 20)
	if res := tbl.RemovePlayer(99); res.Removed {
		t.Error("Removing an unknown player should be a no-op")
	}
}

func TestDealerRotates(t *testing.T) {
	tbl := mustTable(t, seatPlayers(1000, 1000, 1000), 10, 20)
	if err := tbl.StartHand(0); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	if tbl.DealerIndex() != 1 {
		t.Errorf("Expected the button to move from 0 to 1, got %d", tbl.DealerIndex())
	}
}
