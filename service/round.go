package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/beka-birhanu/vinom-treasure-maze/service/i"
	"github.com/google/uuid"
)

// Round-related errors.
var (
	ErrNoEngine      = errors.New("round needs an economy engine")
	ErrNoRoundLogger = errors.New("round needs a logger")
	ErrShortFrame    = errors.New("action frame too short")
)

// Action types of a real-time action frame.
const (
	claimActionType byte = iota + 1
	moveActionType
	buyActionType
	hintActionType
	stateRequestActionType
	dismissActionType

	defaultPollInterval = time.Second
	frameHeaderLen      = 1 + 16 // action type + player ID
)

var _ i.RoundServer = (*Round)(nil)

// RoundConfig wires a Round.
type RoundConfig struct {
	Engine       *economy.Engine
	Schedule     round.Schedule
	Start        time.Time
	PollInterval time.Duration    // defaults to one second
	Now          func() time.Time // defaults to time.Now
	Logger       general_i.Logger

	OnEvent     func(economy.Event)    // optional, called for every drained event
	AfterAction func(ids ...uuid.UUID) // optional, called with every account an action changed
}

// Round runs the shared round loop. It polls the clock, keeps the engine's
// board on the current round, executes player actions, and broadcasts state.
type Round struct {
	engine      *economy.Engine
	schedule    round.Schedule
	start       time.Time
	poll        time.Duration
	now         func() time.Time
	logger      general_i.Logger
	onEvent     func(economy.Event)
	afterAction func(ids ...uuid.UUID)

	started    bool
	stopped    bool
	stop       chan bool
	exited     chan struct{}
	stateChan  chan []byte
	actionChan chan []byte
	replyChan  chan i.Reply
	endChan    chan []byte
	Wg         *sync.WaitGroup
	sync.RWMutex
}

// NewRound validates c and returns a stopped round loop.
func NewRound(c *RoundConfig) (*Round, error) {
	if c.Engine == nil {
		return nil, ErrNoEngine
	}
	if c.Logger == nil {
		return nil, ErrNoRoundLogger
	}
	if err := c.Schedule.Validate(); err != nil {
		return nil, err
	}

	r := &Round{
		engine:      c.Engine,
		schedule:    c.Schedule,
		start:       c.Start,
		poll:        c.PollInterval,
		now:         c.Now,
		logger:      c.Logger,
		onEvent:     c.OnEvent,
		afterAction: c.AfterAction,
		stop:        make(chan bool, 1),
		exited:      make(chan struct{}),
		stateChan:   make(chan []byte),
		actionChan:  make(chan []byte),
		replyChan:   make(chan i.Reply),
		endChan:     make(chan []byte),
		Wg:          &sync.WaitGroup{},
	}
	if r.poll <= 0 {
		r.poll = defaultPollInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Start polls the clock every poll interval and serves actions until Stop.
func (r *Round) Start() {
	r.Lock()
	if r.started || r.stopped {
		r.Unlock()
		return
	}
	r.started = true
	r.Unlock()
	defer close(r.exited)

	x := time.NewTicker(r.poll)
	defer x.Stop()

	r.tick()
	for {
		select {
		case <-r.stop:
			close(r.stop)
			return
		case frame := <-r.actionChan:
			if len(frame) < frameHeaderLen {
				r.logger.Warning(ErrShortFrame.Error())
				continue
			}
			id, err := uuid.FromBytes(frame[1:frameHeaderLen])
			if err != nil {
				continue
			}
			r.Wg.Add(1)
			go r.handleAction(frame[0], id, frame[frameHeaderLen:])
		case <-x.C:
			r.tick()
		}
	}
}

// Stop ends the loop, closes channels, and broadcasts the final state.
func (r *Round) Stop() {
	r.Lock()
	if r.stopped {
		r.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.Unlock()

	r.stop <- true
	if started {
		<-r.exited
	}
	r.Wg.Wait()
	close(r.actionChan)
	close(r.stateChan)
	close(r.replyChan)
	r.broadcastState(true)
	close(r.endChan)
}

// Current derives the round state from the clock.
func (r *Round) Current() round.State {
	r.RLock()
	defer r.RUnlock()
	return r.schedule.At(r.start, r.now())
}

// NextClaimIn is the time left until the next claim phase opens.
func (r *Round) NextClaimIn() time.Duration {
	r.RLock()
	defer r.RUnlock()
	return r.schedule.TimeUntilNextClaim(r.start, r.now())
}

// Sync brings the engine's board up to the current round.
func (r *Round) Sync() (round.State, error) {
	st := r.Current()
	started, err := r.engine.SyncRound(st)
	if err != nil {
		return st, err
	}
	if started {
		r.logger.Info(fmt.Sprintf("round %d opened in %s phase with %s remaining", st.RoundNumber, st.Phase, st.TimeRemaining))
	}
	return st, nil
}

// SetStart moves the game start. Round numbering restarts from the new instant.
func (r *Round) SetStart(t time.Time) {
	r.Lock()
	r.start = t
	r.Unlock()
	r.logger.Info(fmt.Sprintf("game start reset to %s", t.UTC().Format(time.RFC3339)))
}

// Claim buys a starting plot for the player.
func (r *Round) Claim(ctx context.Context, id uuid.UUID, pos maze.Position) error {
	err := r.engine.Claim(ctx, id, pos, r.Current())
	if err == nil || errors.Is(err, economy.ErrRoundOver) {
		r.changed(id)
	}
	return err
}

// Move steps the player to an adjacent cell.
func (r *Round) Move(ctx context.Context, id uuid.UUID, to maze.Position) (economy.MoveResult, error) {
	res, err := r.engine.Move(ctx, id, to, r.Current())
	if err == nil || errors.Is(err, economy.ErrRoundOver) {
		ids := []uuid.UUID{id}
		if res.FeeRecipient != nil {
			ids = append(ids, *res.FeeRecipient)
		}
		r.changed(ids...)
	}
	return res, err
}

// BuyGold converts wallet currency into gold.
func (r *Round) BuyGold(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	gold, err := r.engine.BuyGold(ctx, id, amount)
	if err == nil {
		r.changed(id)
	}
	return gold, err
}

// Hint returns the suggested route to the exit.
func (r *Round) Hint(id uuid.UUID) (maze.Hint, error) {
	if _, err := r.Sync(); err != nil {
		return maze.Hint{}, err
	}
	return r.engine.Hint(id)
}

func (r *Round) changed(ids ...uuid.UUID) {
	if r.afterAction != nil {
		r.afterAction(ids...)
	}
	r.requestBroadcast()
}

func (r *Round) tick() {
	if _, err := r.Sync(); err != nil {
		r.logger.Error(fmt.Sprintf("syncing round: %s", err))
	}
	for _, ev := range r.engine.DrainEvents() {
		if r.onEvent != nil {
			r.onEvent(ev)
		}
	}
	r.broadcastState(false)
}

func (r *Round) requestBroadcast() {
	r.RLock()
	defer r.RUnlock()
	if r.stopped {
		return
	}
	r.Wg.Add(1)
	go func() {
		defer r.Wg.Done()
		r.broadcastState(false)
	}()
}

// handleAction executes one real-time action and replies to its sender.
func (r *Round) handleAction(t byte, id uuid.UUID, payload []byte) {
	defer r.Wg.Done()

	ctx := context.Background()
	reply := map[string]any{"ok": true}
	var err error

	switch t {
	case stateRequestActionType:
		reply["action"] = "state"
		var acc economy.Account
		if acc, err = r.engine.Account(id); err == nil {
			reply["account"] = AccountFields(acc)
			reply["round"] = RoundFields(r.Current())
			reply["board"] = BoardFields(r.engine.Board())
		}
	case claimActionType:
		reply["action"] = "claim"
		var pos maze.Position
		if pos, err = decodePosition(payload); err == nil {
			err = r.Claim(ctx, id, pos)
		}
	case moveActionType:
		reply["action"] = "move"
		var pos maze.Position
		if pos, err = decodePosition(payload); err == nil {
			var res economy.MoveResult
			if res, err = r.Move(ctx, id, pos); err == nil {
				reply["move"] = MoveFields(res)
			}
		}
	case buyActionType:
		reply["action"] = "buy"
		var amount int64
		if amount, err = decodeAmount(payload); err == nil {
			var gold int64
			if gold, err = r.BuyGold(ctx, id, amount); err == nil {
				reply["gold"] = gold
			}
		}
	case dismissActionType:
		reply["action"] = "dismiss"
		if err = r.engine.ClearLastFee(id); err == nil {
			err = r.engine.ClearLastCollection(id)
		}
	case hintActionType:
		reply["action"] = "hint"
		var h maze.Hint
		if h, err = r.Hint(id); err == nil {
			reply["hint"] = HintFields(h)
		}
	default:
		r.logger.Warning(fmt.Sprintf("unknown action type %d from player %s", t, id))
		return
	}

	if err != nil {
		reply["ok"] = false
		reply["error"] = err.Error()
	}
	if _, ok := reply["account"]; !ok {
		if acc, accErr := r.engine.Account(id); accErr == nil {
			reply["account"] = AccountFields(acc)
		}
	}

	b, err := marshalFields(reply)
	if err != nil {
		r.logger.Error(fmt.Sprintf("encoding reply for player %s: %s", id, err))
		return
	}
	r.replyChan <- i.Reply{Player: id, Payload: b}
}

// broadcastState sends the current round state to every player.
func (r *Round) broadcastState(ended bool) {
	payload, err := r.snapshot()
	if err != nil {
		r.logger.Error(fmt.Sprintf("encoding round state: %s", err))
		return
	}

	if ended {
		r.endChan <- payload
	} else {
		r.stateChan <- payload
	}
}

func (r *Round) snapshot() ([]byte, error) {
	return marshalFields(map[string]any{
		"round":       RoundFields(r.Current()),
		"board":       BoardFields(r.engine.Board()),
		"treasury":    r.engine.Treasury(),
		"nextClaimMs": r.NextClaimIn().Milliseconds(),
	})
}

func decodePosition(payload []byte) (maze.Position, error) {
	s, err := unmarshalStruct(payload)
	if err != nil {
		return maze.Position{}, err
	}
	return PositionFrom(s)
}

func decodeAmount(payload []byte) (int64, error) {
	s, err := unmarshalStruct(payload)
	if err != nil {
		return 0, err
	}
	return AmountFrom(s)
}

// StateChan returns the state change channel.
func (r *Round) StateChan() <-chan []byte {
	return r.stateChan
}

// ActionChan returns the action channel.
func (r *Round) ActionChan() chan<- []byte {
	return r.actionChan
}

// ReplyChan returns the action result channel.
func (r *Round) ReplyChan() <-chan i.Reply {
	return r.replyChan
}

// EndChan returns the end channel.
func (r *Round) EndChan() <-chan []byte {
	return r.endChan
}
