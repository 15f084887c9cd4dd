package room

import (
	"context"
	"encoding/json"

	"github.com/feltround/holdem/internal/game"
	"github.com/feltround/holdem/internal/protocol"
)

// stateFor builds the table snapshot as seen by one viewer. Hole cards are
// redacted per recipient: a viewer always gets their own, and everyone
// else's only once the hand has reached showdown.
func (r *Room) stateFor(viewerID int64) protocol.GameState {
	t := r.table
	reveal := t.Round() >= game.Showdown

	state := protocol.GameState{
		IsActive:       t.Active(),
		Round:          t.Round().String(),
		Pot:            t.PotTotal(),
		CommunityCards: t.Community(),
		SmallBlind:     t.SmallBlind(),
		BigBlind:       t.BigBlind(),
		DealerPosition: t.DealerIndex(),
	}

	for _, p := range t.Players() {
		ps := protocol.PlayerState{
			ID:         p.ID,
			Username:   p.Username,
			Money:      p.Stack,
			CurrentBet: p.CurrentBet,
			Folded:     p.Folded,
			LastAction: p.LastAction.String(),
			Seat:       p.Seat,
		}
		if p.ID == viewerID || (reveal && !p.Folded) {
			ps.Cards = p.HoleCards
			if p.HandRank >= 0 {
				rank := int(p.HandRank)
				ps.HandRank = &rank
			}
		}
		state.Players = append(state.Players, ps)
	}

	if cp := t.CurrentPlayer(); cp != nil {
		id := cp.ID
		state.CurrentPlayer = &id
		if cp.ID == viewerID {
			acts := t.AvailableActions()
			state.CanFold = acts.CanFold
			state.CanCheck = acts.CanCheck
			state.CanCall = acts.CanCall
			state.CanBet = acts.CanBet
			state.CanRaise = acts.CanRaise
			state.MinBet = acts.MinBet
			minRaise := acts.MinRaise
			state.MinRaise = &minRaise
		}
	}

	for _, w := range t.Winners() {
		state.Winners = append(state.Winners, protocol.Winner{
			ID:        w.PlayerID,
			Username:  w.Username,
			WinAmount: w.Amount,
		})
	}
	return state
}

// joinState is the state pushed to a connecting session: the redacted live
// table when one exists, an idle placeholder otherwise.
func (r *Room) joinState(viewerID int64) protocol.GameState {
	if r.table == nil {
		return protocol.GameState{Round: game.Waiting.String()}
	}
	return r.stateFor(viewerID)
}

// snapshotJSON encodes the neutral view of the table for persistence. At
// hand end this includes every surviving player's revealed cards.
func (r *Room) snapshotJSON() ([]byte, error) {
	return json.Marshal(r.stateFor(0))
}

// persistSnapshot saves the current state through the async writer. Runs
// after every broadcast state change, so the stored row tracks the hand
// street by street.
func (r *Room) persistSnapshot() {
	snapshot, err := r.snapshotJSON()
	if err != nil {
		r.logger.Warn("encoding snapshot", "error", err)
		return
	}
	r.cfg.Writer.Enqueue("save-snapshot", func(ctx context.Context) error {
		return r.cfg.Store.SaveSnapshot(ctx, r.id, snapshot)
	})
}
