// Package game implements the Texas Hold'em engine for a single table.
//
// The main type is Table, which owns one hand from blinds through payout:
//
//	t, _ := game.NewTable(rng, players, 10, 20)
//	t.StartHand(-1)
//	res, err := t.PlayerAction(playerID, game.Call, 0)
//	if res.RoundComplete {
//	    t.AdvanceRound()
//	}
//
// The engine is pure state: it performs no I/O and knows nothing about
// sessions or rooms. All mutation happens through PlayerAction, AdvanceRound
// and RemovePlayer, so a single-owner caller (the room actor) needs no
// locking.
//
// Hand ranking is deliberately coarse: Evaluate returns only the category
// (pair, flush, ...) with no kicker tie-breaking, and players sharing the
// best category split the pot.
package game
