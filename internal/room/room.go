// Package room runs the coordinator for one poker room. Every room owns a
// single goroutine that consumes an event channel; sessions, turn timers and
// persistence callbacks all talk to the room by posting events, so the table
// state is never touched from two goroutines at once.
package room

import (
	"context"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltround/holdem/internal/game"
	"github.com/feltround/holdem/internal/handid"
	"github.com/feltround/holdem/internal/protocol"
	"github.com/feltround/holdem/internal/store"
)

// Client is a connected session the room can push frames to. Send must not
// block; the transport buffers and drops slow consumers.
type Client interface {
	UserID() int64
	Username() string
	Send(msg *protocol.Message)
}

// Config carries a room's collaborators.
type Config struct {
	Store       store.Store
	Writer      *store.Writer
	Clock       quartz.Clock
	Logger      *log.Logger
	Rand        *rand.Rand
	TurnTimeout time.Duration
	// OnEmpty is called from the room goroutine right before it exits,
	// after the last session left.
	OnEmpty func(roomID int64)
}

const maxSeats = 8

// storeTimeout bounds the synchronous roster reads the room does on join
// and at hand start. All other persistence goes through the async writer.
const storeTimeout = 5 * time.Second

// Room is the actor coordinating one room: roster, chat, the table engine
// and the turn timer. All fields below events are owned by the run goroutine.
type Room struct {
	id     int64
	info   store.Room
	cfg    Config
	logger *log.Logger
	events chan event
	// closed when the run loop exits; timer goroutines select on it so a
	// late timeout can never block
	stopped chan struct{}

	clients map[int64]Client
	table   *game.Table
	handID  string
	// stacks after the last finished hand. Balance credits are written
	// asynchronously, so the next hand starts from these rather than a
	// possibly stale store read.
	stacks map[int64]int
	// dealer index of the previous hand, -1 before the first one
	prevDealer int
	turnSeq    uint64
	turnTimer  *quartz.Timer
}

type event interface{}

type joinEvent struct {
	client Client
	reply  chan error
}

type leaveEvent struct {
	userID int64
}

type inboundEvent struct {
	client Client
	msg    *protocol.Inbound
}

// timeoutEvent fires when the acting player's clock runs out. seq guards
// against the race where the player acts just as the timer pops: a stale
// sequence number is ignored.
type timeoutEvent struct {
	seq uint64
}

// New creates a room actor and starts its goroutine.
func New(info store.Room, cfg Config) *Room {
	r := &Room{
		id:         info.ID,
		info:       info,
		cfg:        cfg,
		logger:     cfg.Logger.WithPrefix("room").With("roomId", info.ID),
		events:     make(chan event, 64),
		stopped:    make(chan struct{}),
		clients:    make(map[int64]Client),
		stacks:     make(map[int64]int),
		prevDealer: -1,
	}
	go r.run()
	return r
}

// ID returns the room's identifier.
func (r *Room) ID() int64 { return r.id }

// Join registers a session with the room and seats the user if they are not
// already on the roster. Blocks until the room goroutine has processed the
// join.
func (r *Room) Join(ctx context.Context, c Client) error {
	ev := joinEvent{client: c, reply: make(chan error, 1)}
	select {
	case r.events <- ev:
	case <-r.stopped:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave removes a session from the room. Safe to call for sessions that
// never completed a Join.
func (r *Room) Leave(userID int64) {
	select {
	case r.events <- leaveEvent{userID: userID}:
	case <-r.stopped:
	}
}

// Deliver hands a client frame to the room goroutine.
func (r *Room) Deliver(c Client, msg *protocol.Inbound) {
	select {
	case r.events <- inboundEvent{client: c, msg: msg}:
	case <-r.stopped:
	}
}

func (r *Room) run() {
	defer close(r.stopped)
	for ev := range r.events {
		switch ev := ev.(type) {
		case joinEvent:
			ev.reply <- r.handleJoin(ev.client)
		case leaveEvent:
			r.handleLeave(ev.userID)
			if len(r.clients) == 0 {
				r.stopTurnTimer()
				if r.cfg.OnEmpty != nil {
					r.cfg.OnEmpty(r.id)
				}
				r.logger.Info("room empty, shutting down")
				return
			}
		case inboundEvent:
			r.handleInbound(ev.client, ev.msg)
		case timeoutEvent:
			r.handleTimeout(ev.seq)
		}
	}
}

func (r *Room) handleJoin(c Client) error {
	if _, ok := r.clients[c.UserID()]; ok {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	members, err := r.cfg.Store.RoomMembers(ctx, r.id)
	if err != nil {
		return err
	}
	if !onRoster(members, c.UserID()) {
		if len(members) >= maxSeats {
			return game.ErrTableFull
		}
		seat := nextSeat(members)
		if err := r.cfg.Store.AddMember(ctx, r.id, c.UserID(), seat); err != nil {
			return err
		}
		members, err = r.cfg.Store.RoomMembers(ctx, r.id)
		if err != nil {
			return err
		}
	}

	r.clients[c.UserID()] = c
	r.logger.Info("player joined", "userId", c.UserID(), "username", c.Username())

	r.broadcast(&protocol.Message{
		Type: protocol.TypePlayerJoined,
		Data: protocol.PlayerJoinedData{
			UserID:   c.UserID(),
			Username: c.Username(),
			Players:  rosterFor(members),
		},
	})

	// Every joiner gets the current state right away: a mid-hand joiner the
	// live table, redacted like everyone else's copy, anyone else the idle
	// placeholder.
	c.Send(&protocol.Message{
		Type: protocol.TypeGameState,
		Data: r.joinState(c.UserID()),
	})
	return nil
}

func (r *Room) handleLeave(userID int64) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	delete(r.clients, userID)
	delete(r.stacks, userID)
	r.logger.Info("player left", "userId", userID, "username", c.Username())

	// Dropping mid-hand forfeits the hand: the seat is removed and its
	// committed chips stay in the pot.
	if r.table != nil && r.table.Active() {
		res := r.table.RemovePlayer(userID)
		switch {
		case res.HandEnded != nil:
			r.finishHand(res.HandEnded)
		case res.RoundComplete:
			r.advanceRound()
		case res.Removed:
			r.announceTurn()
		}
	}

	r.cfg.Writer.Enqueue("remove-member", func(ctx context.Context) error {
		return r.cfg.Store.RemoveMember(ctx, r.id, userID)
	})

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	members, err := r.cfg.Store.RoomMembers(ctx, r.id)
	cancel()
	if err != nil {
		r.logger.Warn("loading roster after leave", "error", err)
	}
	members = withoutMember(members, userID)

	r.broadcast(&protocol.Message{
		Type: protocol.TypePlayerLeft,
		Data: protocol.PlayerLeftData{
			UserID:   userID,
			Username: c.Username(),
			Players:  rosterFor(members),
		},
	})
}

func (r *Room) handleInbound(c Client, msg *protocol.Inbound) {
	switch msg.Type {
	case protocol.TypeAction:
		r.handleAction(c, msg.Action, msg.Amount)
	case protocol.TypeStartGame:
		r.handleStartGame(c)
	case protocol.TypeChat:
		r.handleChat(c, msg.Message)
	default:
		// Unknown frame types are dropped, not answered
		r.logger.Debug("ignoring unknown message type", "type", msg.Type, "userId", c.UserID())
	}
}

func (r *Room) handleStartGame(c Client) {
	if c.UserID() != r.info.OwnerID {
		c.Send(protocol.NewError("only the room owner can start the game"))
		return
	}
	if r.table != nil && r.table.Active() {
		c.Send(protocol.NewError("a hand is already in progress"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	members, err := r.cfg.Store.RoomMembers(ctx, r.id)
	cancel()
	if err != nil {
		r.logger.Error("loading roster for hand start", "error", err)
		c.Send(protocol.NewError("could not load the room roster"))
		return
	}

	// Only connected members are dealt in.
	var players []*game.Player
	for _, m := range members {
		if _, ok := r.clients[m.UserID]; !ok {
			continue
		}
		stack := m.Balance
		if s, ok := r.stacks[m.UserID]; ok {
			stack = s
		}
		players = append(players, &game.Player{
			ID:       m.UserID,
			Username: m.Username,
			Seat:     m.Seat,
			Stack:    stack,
		})
	}

	table, err := game.NewTable(r.cfg.Rand, players, r.info.SmallBlind, r.info.BigBlind)
	if err != nil {
		c.Send(protocol.NewError(err.Error()))
		return
	}
	if err := table.StartHand(r.prevDealer); err != nil {
		c.Send(protocol.NewError(err.Error()))
		return
	}

	r.table = table
	r.handID = handid.Generate()
	r.logger.Info("hand started",
		"handId", r.handID,
		"players", len(players),
		"smallBlind", r.info.SmallBlind,
		"bigBlind", r.info.BigBlind)

	r.cfg.Writer.Enqueue("set-room-active", func(ctx context.Context) error {
		return r.cfg.Store.SetRoomActive(ctx, r.id, true)
	})

	r.broadcastState(protocol.TypeGameStarted)
	r.persistSnapshot()
	r.announceTurn()
}

func (r *Room) handleAction(c Client, name string, amount int) {
	if r.table == nil || !r.table.Active() {
		c.Send(protocol.NewError(game.ErrGameNotActive.Error()))
		return
	}
	action, ok := game.ParseAction(name)
	if !ok {
		c.Send(protocol.NewError("unknown action: " + name))
		return
	}

	res, err := r.table.PlayerAction(c.UserID(), action, amount)
	if err != nil {
		c.Send(protocol.NewError(err.Error()))
		return
	}
	r.afterAction(res)
}

// afterAction publishes a committed action and moves the hand along.
func (r *Room) afterAction(res *game.ActionResult) {
	data := protocol.PlayerActionData{
		UserID:   res.Player.ID,
		Username: res.Player.Username,
		Action:   res.Action.String(),
	}
	if res.HasAmount {
		amount := res.Amount
		data.Amount = &amount
	}
	r.broadcast(&protocol.Message{Type: protocol.TypePlayerAction, Data: data})

	if res.RoundComplete {
		r.advanceRound()
	} else {
		r.announceTurn()
	}
}

// advanceRound drives the table forward street by street. When every
// remaining player is all-in the streets run out with no one to act, so the
// loop keeps advancing until a turn exists or the hand ends.
func (r *Room) advanceRound() {
	for {
		res, err := r.table.AdvanceRound()
		if err != nil {
			// Unrecoverable: the table rolled the hand back
			r.logger.Error("hand aborted", "handId", r.handID, "error", err)
			r.broadcast(protocol.NewError("the hand was cancelled"))
			r.finishHand(&game.RoundResult{Ended: true, Round: game.Ended})
			return
		}
		if res.Ended {
			r.finishHand(res)
			return
		}

		for userID, c := range r.clients {
			c.Send(&protocol.Message{
				Type: protocol.TypeRoundStarted,
				Data: protocol.RoundStartedData{
					RoundName: res.Round.String(),
					GameState: r.stateFor(userID),
				},
			})
		}
		r.persistSnapshot()

		if cp := r.table.CurrentPlayer(); cp != nil && cp.CanAct() {
			r.announceTurn()
			return
		}
	}
}

// announceTurn broadcasts whose turn it is and restarts the turn clock.
func (r *Room) announceTurn() {
	cp := r.table.CurrentPlayer()
	if cp == nil {
		return
	}
	r.scheduleTurnTimer()
	for userID, c := range r.clients {
		c.Send(&protocol.Message{
			Type: protocol.TypeTurnChanged,
			Data: protocol.TurnChangedData{
				CurrentPlayer: cp.ID,
				TimeLimit:     int(r.cfg.TurnTimeout / time.Second),
				GameState:     r.stateFor(userID),
			},
		})
	}
}

func (r *Room) scheduleTurnTimer() {
	r.stopTurnTimer()
	r.turnSeq++
	seq := r.turnSeq
	r.turnTimer = r.cfg.Clock.AfterFunc(r.cfg.TurnTimeout, func() {
		select {
		case r.events <- timeoutEvent{seq: seq}:
		case <-r.stopped:
		}
	})
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

// handleTimeout folds the acting player when their clock ran out. The
// sequence number makes this race-free: an action or turn change after the
// timer fired bumps the sequence and the stale event is dropped.
func (r *Room) handleTimeout(seq uint64) {
	if seq != r.turnSeq || r.table == nil || !r.table.Active() {
		return
	}
	cp := r.table.CurrentPlayer()
	if cp == nil {
		return
	}
	r.logger.Info("turn timed out, folding", "userId", cp.ID, "username", cp.Username)

	res, err := r.table.PlayerAction(cp.ID, game.Fold, 0)
	if err != nil {
		r.logger.Error("timeout fold rejected", "error", err)
		return
	}
	r.afterAction(res)
}

// finishHand settles a finished hand: balances are credited as per-player
// stack deltas keyed by the hand ID, the final state is persisted and the
// result is broadcast with all surviving hole cards revealed.
func (r *Room) finishHand(res *game.RoundResult) {
	r.stopTurnTimer()
	r.turnSeq++
	r.prevDealer = r.table.DealerIndex()

	handID := r.handID
	for _, p := range r.table.Players() {
		r.stacks[p.ID] = p.Stack
		delta := p.Stack - p.StartStack
		if delta == 0 {
			continue
		}
		userID := p.ID
		r.cfg.Writer.Enqueue("credit-balance", func(ctx context.Context) error {
			return r.cfg.Store.CreditBalance(ctx, handID, userID, delta)
		})
	}
	r.cfg.Writer.Enqueue("set-room-active", func(ctx context.Context) error {
		return r.cfg.Store.SetRoomActive(ctx, r.id, false)
	})
	r.persistSnapshot()

	r.logger.Info("hand finished", "handId", handID, "winners", len(res.Winners))
	r.broadcastState(protocol.TypeGameEnded)
}

func (r *Room) handleChat(c Client, text string) {
	if text == "" {
		return
	}
	r.broadcast(&protocol.Message{
		Type: protocol.TypeChat,
		Data: protocol.ChatData{
			UserID:    c.UserID(),
			Username:  c.Username(),
			Message:   text,
			Timestamp: r.cfg.Clock.Now().Unix(),
		},
	})
}

func (r *Room) broadcast(msg *protocol.Message) {
	for _, c := range r.clients {
		c.Send(msg)
	}
}

// broadcastState sends each session its own redacted view of the table.
func (r *Room) broadcastState(msgType string) {
	for userID, c := range r.clients {
		c.Send(&protocol.Message{Type: msgType, Data: r.stateFor(userID)})
	}
}

func onRoster(members []store.Member, userID int64) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func nextSeat(members []store.Member) int {
	taken := make(map[int]bool, len(members))
	for _, m := range members {
		taken[m.Seat] = true
	}
	for seat := 0; ; seat++ {
		if !taken[seat] {
			return seat
		}
	}
}

func withoutMember(members []store.Member, userID int64) []store.Member {
	out := members[:0]
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}

func rosterFor(members []store.Member) []protocol.Member {
	roster := make([]protocol.Member, 0, len(members))
	for _, m := range members {
		roster = append(roster, protocol.Member{
			ID:       m.UserID,
			Username: m.Username,
			Money:    m.Balance,
			Seat:     m.Seat,
		})
	}
	return roster
}
