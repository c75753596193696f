package economy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/google/uuid"
)

// Action errors. None of them leave partial state behind.
var (
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrWrongPhase        = errors.New("action not allowed in this phase")
	ErrOutOfBounds       = errors.New("position is outside the grid")
	ErrPlotOwned         = errors.New("plot already claimed")
	ErrAlreadyClaimed    = errors.New("player already claimed a plot this round")
	ErrInsufficientFunds = errors.New("insufficient gold")
	ErrNotClaimed        = errors.New("player has no plot this round")
	ErrIllegalMove       = errors.New("illegal move")
	ErrRoundOver         = errors.New("round is over for this player")
	ErrActionPending     = errors.New("another action is still pending")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrNoBoard           = errors.New("no round has started yet")
)

// Engine applies claims, crossing fees, treasure collection and gold purchases
// to the shared board and the players' ledgers.
type Engine struct {
	cfg         Config
	payments    PaymentProvider
	logger      general_i.Logger
	mazeFactory func(rows, cols int) (*maze.Maze, error)
	rng         *rand.Rand

	board      Board
	accounts   map[uuid.UUID]*Account
	treasury   int64
	collecting map[int]bool
	events     []Event
	sync.Mutex
}

// NewEngine validates c and returns an engine with no board yet.
// The first SyncRound (or action) generates the board.
func NewEngine(c *Config) (*Engine, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if c.Seed != nil {
		rng = rand.New(rand.NewPCG(*c.Seed, ^*c.Seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e := &Engine{
		cfg:        *c,
		payments:   c.Payments,
		logger:     c.Logger,
		rng:        rng,
		accounts:   make(map[uuid.UUID]*Account),
		treasury:   c.InitialTreasury,
		collecting: make(map[int]bool),
	}
	e.mazeFactory = c.MazeFactory
	if e.mazeFactory == nil {
		e.mazeFactory = func(rows, cols int) (*maze.Maze, error) {
			return maze.New(rows, cols, maze.WithRand(e.rng))
		}
	}
	return e, nil
}

// Join registers a player with the starting balance, or returns the existing account.
func (e *Engine) Join(id uuid.UUID, nickname string) Account {
	e.Lock()
	defer e.Unlock()

	acc, ok := e.accounts[id]
	if !ok {
		acc = &Account{PlayerID: id, Nickname: nickname, Gold: e.cfg.StartingGold}
		e.accounts[id] = acc
		e.logger.Info(fmt.Sprintf("player %s joined with %d gold", id, acc.Gold))
	} else if nickname != "" {
		acc.Nickname = nickname
	}
	return acc.clone()
}

// Restore re-seeds an account from a cached snapshot. The claim and position
// are only restored when the current board still shows the player on that plot.
func (e *Engine) Restore(s Snapshot) Account {
	e.Lock()
	defer e.Unlock()

	acc, ok := e.accounts[s.PlayerID]
	if !ok {
		acc = &Account{PlayerID: s.PlayerID}
		e.accounts[s.PlayerID] = acc
	}
	acc.Nickname = s.Nickname
	acc.Gold, acc.Profit, acc.Loss = s.Gold, s.Profit, s.Loss
	acc.resetRound()

	if s.HasClaimedPlot && s.Position != nil && e.board.Maze != nil && s.Round == e.board.Round &&
		s.RoundStartedAt.UnixMilli() == e.board.StartedAt.UnixMilli() &&
		e.board.Maze.InBound(s.Position.Col, s.Position.Row) {
		plot := e.board.plot(*s.Position)
		if plot.Owner == s.PlayerID {
			p := *s.Position
			acc.Position = &p
			acc.HasClaimedPlot = true
		}
	}
	return acc.clone()
}

// SyncRound regenerates the board when st reports a round that started after
// the board's. It reports whether a new round started. A state older than the
// board is ignored.
func (e *Engine) SyncRound(st round.State) (bool, error) {
	e.Lock()
	defer e.Unlock()
	started, err := e.syncLocked(st)
	if errors.Is(err, ErrRoundOver) {
		return false, nil
	}
	return started, err
}

// syncLocked returns ErrRoundOver for a state computed before the current board's round began.
func (e *Engine) syncLocked(st round.State) (bool, error) {
	if e.board.Maze != nil {
		if st.StartedAt.Equal(e.board.StartedAt) {
			return false, nil
		}
		if st.StartedAt.Before(e.board.StartedAt) {
			return false, ErrRoundOver
		}
	}

	m, err := e.mazeFactory(e.cfg.Rows, e.cfg.Cols)
	if err != nil {
		return false, fmt.Errorf("generating maze for round %d: %w", st.RoundNumber, err)
	}

	plots := make([][]Plot, e.cfg.Rows)
	for r := range plots {
		plots[r] = make([]Plot, e.cfg.Cols)
	}

	e.board = Board{
		Round:     st.RoundNumber,
		StartedAt: st.StartedAt,
		Maze:      m,
		Plots:     plots,
		Treasures: e.cfg.Treasure.Generate(e.cfg.Rows, e.cfg.Cols, e.treasury, e.rng),
		Exit:      maze.ChooseExit(e.cfg.Rows, e.cfg.Cols, e.rng),
	}
	e.collecting = make(map[int]bool)
	for _, acc := range e.accounts {
		acc.resetRound()
	}

	e.emit(Event{Kind: EventRoundStarted, Position: e.board.Exit})
	e.logger.Info(fmt.Sprintf("round %d started: %d treasures, exit at (%d,%d), treasury %d",
		e.board.Round, len(e.board.Treasures), e.board.Exit.Col, e.board.Exit.Row, e.treasury))
	return true, nil
}

// Claim buys pos as the player's starting plot for the current round.
func (e *Engine) Claim(ctx context.Context, id uuid.UUID, pos maze.Position, st round.State) error {
	e.Lock()
	acc, err := e.beginLocked(id, st)
	if err != nil {
		e.Unlock()
		return err
	}
	if st.Phase != round.PhaseClaim {
		e.Unlock()
		return ErrWrongPhase
	}
	if !e.board.Maze.InBound(pos.Col, pos.Row) {
		e.Unlock()
		return ErrOutOfBounds
	}
	if acc.HasClaimedPlot {
		e.Unlock()
		return ErrAlreadyClaimed
	}
	plot := e.board.plot(pos)
	if !plot.available() {
		e.Unlock()
		return ErrPlotOwned
	}
	cost := e.cfg.ClaimCost(pos)
	if acc.Gold < cost {
		e.Unlock()
		return ErrInsufficientFunds
	}

	plot.reservedBy = id
	acc.pending = true
	roundNumber, roundStart := e.board.Round, e.board.StartedAt
	e.Unlock()

	payErr := e.call(ctx, func(ctx context.Context) error {
		return e.payments.ClaimPlot(ctx, id, pos, cost)
	})

	e.Lock()
	defer e.Unlock()
	acc.pending = false
	sameRound := e.board.StartedAt.Equal(roundStart)
	if sameRound {
		e.board.plot(pos).reservedBy = uuid.Nil
	}
	if payErr != nil {
		return e.paymentFailedLocked(id, pos, cost, payErr)
	}

	acc.Gold -= cost
	acc.Loss += cost
	acc.LastFee = cost
	e.treasury += cost
	if !sameRound {
		e.logger.Warning(fmt.Sprintf("claim by %s confirmed after round %d ended", id, roundNumber))
		return ErrRoundOver
	}

	plot = e.board.plot(pos)
	plot.Owner = id
	plot.Nickname = acc.Nickname
	p := pos
	acc.Position = &p
	acc.HasClaimedPlot = true

	e.emit(Event{Kind: EventPlotClaimed, Player: id, Position: pos, Amount: cost})
	e.logger.Info(fmt.Sprintf("player %s claimed plot (%d,%d) for %d gold", id, pos.Col, pos.Row, cost))
	return nil
}

// Move steps the player onto to, paying a crossing fee on foreign plots and
// collecting any treasure found there.
func (e *Engine) Move(ctx context.Context, id uuid.UUID, to maze.Position, st round.State) (MoveResult, error) {
	e.Lock()
	acc, err := e.beginLocked(id, st)
	if err != nil {
		e.Unlock()
		return MoveResult{}, err
	}
	if st.Phase != round.PhasePlay {
		e.Unlock()
		return MoveResult{}, ErrWrongPhase
	}
	if !acc.HasClaimedPlot || acc.Position == nil {
		e.Unlock()
		return MoveResult{}, ErrNotClaimed
	}
	if acc.Finished {
		e.Unlock()
		return MoveResult{}, ErrRoundOver
	}
	if !e.board.Maze.CanMoveTo(*acc.Position, to.Col, to.Row) {
		e.Unlock()
		return MoveResult{}, ErrIllegalMove
	}

	res := MoveResult{Position: to}
	owner := e.board.plot(to).Owner
	if owner != uuid.Nil && owner != id {
		res.Fee = e.cfg.CrossingFee
		if acc.Gold < res.Fee {
			e.Unlock()
			return MoveResult{}, ErrInsufficientFunds
		}
		if e.cfg.FeeRouting == FeeToOwner {
			o := owner
			res.FeeRecipient = &o
		}
	}
	acc.pending = true
	roundStart := e.board.StartedAt
	e.Unlock()

	if res.Fee > 0 {
		payErr := e.call(ctx, func(ctx context.Context) error {
			return e.payments.PayFee(ctx, id, res.Fee, res.FeeRecipient)
		})
		if payErr != nil {
			e.Lock()
			defer e.Unlock()
			acc.pending = false
			return MoveResult{}, e.paymentFailedLocked(id, to, res.Fee, payErr)
		}
	}

	e.Lock()
	if res.Fee > 0 {
		e.chargeFeeLocked(acc, owner, res)
	}
	if !e.board.StartedAt.Equal(roundStart) {
		acc.pending = false
		e.Unlock()
		return MoveResult{}, ErrRoundOver
	}
	p := to
	acc.Position = &p

	ti := e.board.treasureAt(to)
	if ti < 0 || e.board.Treasures[ti].Collected || e.collecting[ti] {
		res.ReachedExit = e.arriveLocked(acc, to)
		acc.pending = false
		e.Unlock()
		return res, nil
	}
	value := e.board.Treasures[ti].Value
	e.collecting[ti] = true
	e.Unlock()

	collectErr := e.call(ctx, func(ctx context.Context) error {
		return e.payments.CollectTreasure(ctx, id, value)
	})

	e.Lock()
	defer e.Unlock()
	acc.pending = false
	sameRound := e.board.StartedAt.Equal(roundStart)
	if sameRound {
		delete(e.collecting, ti)
	}
	if collectErr != nil {
		e.logger.Warning(fmt.Sprintf("treasure at (%d,%d) left in place: %s", to.Col, to.Row, collectErr))
		e.emit(Event{Kind: EventPaymentFailed, Player: id, Position: to, Amount: value, Err: collectErr.Error()})
	} else {
		acc.Gold += value
		acc.Profit += value
		acc.LastCollection = value
		e.treasury -= value
		res.Collected = value
		if sameRound {
			e.board.Treasures[ti].Collected = true
			acc.Score += value
			e.emit(Event{Kind: EventTreasureCollected, Player: id, Position: to, Amount: value})
		}
		e.logger.Info(fmt.Sprintf("player %s collected %d gold at (%d,%d)", id, value, to.Col, to.Row))
	}
	if sameRound {
		res.ReachedExit = e.arriveLocked(acc, to)
	}
	return res, nil
}

func (e *Engine) chargeFeeLocked(acc *Account, owner uuid.UUID, res MoveResult) {
	acc.Gold -= res.Fee
	acc.Loss += res.Fee
	acc.LastFee = res.Fee

	if res.FeeRecipient != nil {
		if o, ok := e.accounts[owner]; ok {
			o.Gold += res.Fee
			o.Profit += res.Fee
		} else {
			e.treasury += res.Fee
		}
	} else {
		e.treasury += res.Fee
	}
	e.emit(Event{Kind: EventFeePaid, Player: acc.PlayerID, Position: res.Position, Amount: res.Fee})
}

func (e *Engine) arriveLocked(acc *Account, to maze.Position) bool {
	if to != e.board.Exit {
		return false
	}
	acc.Finished = true
	e.emit(Event{Kind: EventExitReached, Player: acc.PlayerID, Position: to, Amount: acc.Score})
	e.logger.Info(fmt.Sprintf("player %s reached the exit with score %d", acc.PlayerID, acc.Score))
	return true
}

// BuyGold converts amount of the provider's currency into gold.
func (e *Engine) BuyGold(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	e.Lock()
	acc, ok := e.accounts[id]
	if !ok {
		e.Unlock()
		return 0, ErrUnknownPlayer
	}
	if acc.pending {
		e.Unlock()
		return 0, ErrActionPending
	}
	acc.pending = true
	e.Unlock()

	var gold int64
	payErr := e.call(ctx, func(ctx context.Context) error {
		var err error
		gold, err = e.payments.BuyGold(ctx, id, amount)
		return err
	})

	e.Lock()
	defer e.Unlock()
	acc.pending = false
	if payErr == nil && gold <= 0 {
		payErr = fmt.Errorf("%w: provider credited %d gold", ErrInvalidAmount, gold)
	}
	if payErr != nil {
		var pos maze.Position
		if acc.Position != nil {
			pos = *acc.Position
		}
		return 0, e.paymentFailedLocked(id, pos, amount, payErr)
	}
	acc.Gold += gold
	e.emit(Event{Kind: EventGoldBought, Player: id, Amount: gold})
	e.logger.Info(fmt.Sprintf("player %s bought %d gold", id, gold))
	return gold, nil
}

// Hint returns a suggested route from the player's position to the exit.
func (e *Engine) Hint(id uuid.UUID) (maze.Hint, error) {
	e.Lock()
	defer e.Unlock()

	acc, ok := e.accounts[id]
	if !ok {
		return maze.Hint{}, ErrUnknownPlayer
	}
	if e.board.Maze == nil {
		return maze.Hint{}, ErrNoBoard
	}
	if acc.Position == nil {
		return maze.Hint{}, ErrNotClaimed
	}
	return e.board.Maze.FindPath(*acc.Position, e.board.Exit), nil
}

// Account returns a copy of a player's account.
func (e *Engine) Account(id uuid.UUID) (Account, error) {
	e.Lock()
	defer e.Unlock()
	acc, ok := e.accounts[id]
	if !ok {
		return Account{}, ErrUnknownPlayer
	}
	return acc.clone(), nil
}

// Snapshot returns the cacheable part of a player's account.
func (e *Engine) Snapshot(id uuid.UUID) (Snapshot, error) {
	e.Lock()
	defer e.Unlock()
	acc, ok := e.accounts[id]
	if !ok {
		return Snapshot{}, ErrUnknownPlayer
	}
	c := acc.clone()
	return Snapshot{
		PlayerID:       c.PlayerID,
		Nickname:       c.Nickname,
		Round:          e.board.Round,
		RoundStartedAt: e.board.StartedAt,
		Position:       c.Position,
		HasClaimedPlot: c.HasClaimedPlot,
		Gold:           c.Gold,
		Profit:         c.Profit,
		Loss:           c.Loss,
	}, nil
}

// Players lists every registered player.
func (e *Engine) Players() []uuid.UUID {
	e.Lock()
	defer e.Unlock()
	out := make([]uuid.UUID, 0, len(e.accounts))
	for id := range e.accounts {
		out = append(out, id)
	}
	return out
}

// Board returns a copy of the current board.
func (e *Engine) Board() Board {
	e.Lock()
	defer e.Unlock()
	return e.board.clone()
}

// Treasury returns the shared pool balance.
func (e *Engine) Treasury() int64 {
	e.Lock()
	defer e.Unlock()
	return e.treasury
}

// ClearLastFee resets the last fee shown to the player.
func (e *Engine) ClearLastFee(id uuid.UUID) error {
	e.Lock()
	defer e.Unlock()
	acc, ok := e.accounts[id]
	if !ok {
		return ErrUnknownPlayer
	}
	acc.LastFee = 0
	return nil
}

// ClearLastCollection resets the last collection shown to the player.
func (e *Engine) ClearLastCollection(id uuid.UUID) error {
	e.Lock()
	defer e.Unlock()
	acc, ok := e.accounts[id]
	if !ok {
		return ErrUnknownPlayer
	}
	acc.LastCollection = 0
	return nil
}

// beginLocked brings the board up to st and checks the player may act.
func (e *Engine) beginLocked(id uuid.UUID, st round.State) (*Account, error) {
	acc, ok := e.accounts[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if acc.pending {
		return nil, ErrActionPending
	}
	if _, err := e.syncLocked(st); err != nil {
		return nil, err
	}
	return acc, nil
}

func (e *Engine) paymentFailedLocked(id uuid.UUID, pos maze.Position, amount int64, err error) error {
	e.emit(Event{Kind: EventPaymentFailed, Player: id, Position: pos, Amount: amount, Err: err.Error()})
	e.logger.Warning(fmt.Sprintf("payment of %d for player %s failed: %s", amount, id, err))
	return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
}

// call runs a provider call under the soft timeout. A result that arrives
// after the deadline is treated as a failure.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PaymentTimeout)
		defer cancel()
	}
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return err
}
