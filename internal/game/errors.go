package game

import "errors"

// Validation failures triggered by player input. These are recovered locally:
// the offending session gets an error message and table state is unchanged.
var (
	ErrGameNotActive     = errors.New("no hand is in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidAction     = errors.New("action is not legal right now")
	ErrBelowMinimum      = errors.New("amount is below the minimum")
	ErrInsufficientFunds = errors.New("not enough chips")
	ErrNotEnoughPlayers  = errors.New("at least 2 players are required")
	ErrTableFull         = errors.New("a table seats at most 8 players")
	ErrUnknownPlayer     = errors.New("player is not seated at this table")
)
