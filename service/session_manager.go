package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	socket_i "github.com/beka-birhanu/vinom-common/interfaces/socket"
	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/beka-birhanu/vinom-treasure-maze/service/i"
	"github.com/google/uuid"
)

const (
	roundStateRecordType   = 10
	roundEndedRecordType   = 11
	actionResultRecordType = 12
	eventRecordType        = 13
)

// Session errors.
var (
	ErrNoLogger      = errors.New("session manager needs a logger")
	ErrInvalidPlayer = errors.New("invalid player id")
	ErrNoSession     = errors.New("player has not joined")
	ErrNoSocket      = errors.New("no real-time socket configured")
	ErrStopped       = errors.New("session manager stopped")
)

var _ i.SessionManager = (*SessionManager)(nil)

// SessionStore caches sessions across restarts.
type SessionStore interface {
	SaveSession(ctx context.Context, snap economy.Snapshot) error
	LoadSession(ctx context.Context, id uuid.UUID) (economy.Snapshot, bool, error)
	ResetGameStartEpoch(ctx context.Context, t time.Time) error
}

// Config wires a SessionManager.
type Config struct {
	Socket       socket_i.ServerSocketManager // optional
	Store        SessionStore                 // optional
	Engine       *economy.Engine
	Schedule     round.Schedule
	Start        time.Time
	PollInterval time.Duration
	Now          func() time.Time
	Logger       general_i.Logger
	RoundLogger  general_i.Logger // defaults to Logger
}

// SessionManager owns the shared round, the players joined to it, and
// their cached sessions.
type SessionManager struct {
	socket  socket_i.ServerSocketManager
	store   SessionStore
	engine  *economy.Engine
	round   *Round
	now     func() time.Time
	logger  general_i.Logger
	stopped bool
	done    chan struct{}
	sync.RWMutex
}

// NewSessionManager creates the manager and starts the round loop.
func NewSessionManager(c *Config) (*SessionManager, error) {
	if c.Logger == nil {
		return nil, ErrNoLogger
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	roundLogger := c.RoundLogger
	if roundLogger == nil {
		roundLogger = c.Logger
	}

	sm := &SessionManager{
		socket: c.Socket,
		store:  c.Store,
		engine: c.Engine,
		now:    now,
		logger: c.Logger,
		done:   make(chan struct{}),
	}

	r, err := NewRound(&RoundConfig{
		Engine:       c.Engine,
		Schedule:     c.Schedule,
		Start:        c.Start,
		PollInterval: c.PollInterval,
		Now:          now,
		Logger:       roundLogger,
		OnEvent:      sm.publishEvent,
		AfterAction:  sm.persist,
	})
	if err != nil {
		return nil, err
	}
	sm.round = r

	if sm.socket != nil {
		sm.socket.SetClientRequestHandler(sm.writePlayerRequest)
		sm.socket.SetClientAuthenticator(sm)
	}

	go r.Start()
	go sm.listenRoundChan()
	return sm, nil
}

// Join registers the player. A player unknown to this process is restored
// from the session cache when a snapshot exists.
func (s *SessionManager) Join(ctx context.Context, id uuid.UUID, nickname string) (economy.Account, error) {
	if id == uuid.Nil {
		return economy.Account{}, ErrInvalidPlayer
	}
	if _, err := s.round.Sync(); err != nil {
		return economy.Account{}, err
	}

	if _, err := s.engine.Account(id); err == nil {
		return s.engine.Join(id, nickname), nil
	}

	var acc economy.Account
	restored := false
	if s.store != nil {
		snap, ok, err := s.store.LoadSession(ctx, id)
		if err != nil {
			s.logger.Warning(fmt.Sprintf("loading cached session of %s: %s", id, err))
		} else if ok {
			if nickname != "" {
				snap.Nickname = nickname
			}
			acc = s.engine.Restore(snap)
			restored = true
		}
	}
	if !restored {
		acc = s.engine.Join(id, nickname)
	}
	s.persist(id)
	s.logger.Info(fmt.Sprintf("player %s joined (restored: %t)", id, restored))
	return acc, nil
}

func (s *SessionManager) Claim(ctx context.Context, id uuid.UUID, pos maze.Position) (economy.Account, error) {
	err := s.round.Claim(ctx, id, pos)
	acc, accErr := s.engine.Account(id)
	if err != nil {
		return acc, err
	}
	return acc, accErr
}

func (s *SessionManager) Move(ctx context.Context, id uuid.UUID, to maze.Position) (economy.MoveResult, economy.Account, error) {
	res, err := s.round.Move(ctx, id, to)
	acc, accErr := s.engine.Account(id)
	if err != nil {
		return res, acc, err
	}
	return res, acc, accErr
}

func (s *SessionManager) BuyGold(ctx context.Context, id uuid.UUID, amount int64) (int64, economy.Account, error) {
	gold, err := s.round.BuyGold(ctx, id, amount)
	acc, accErr := s.engine.Account(id)
	if err != nil {
		return gold, acc, err
	}
	return gold, acc, accErr
}

func (s *SessionManager) Hint(id uuid.UUID) (maze.Hint, error) {
	return s.round.Hint(id)
}

func (s *SessionManager) State(id uuid.UUID) (round.State, economy.Account, economy.Board, error) {
	st, err := s.round.Sync()
	if err != nil {
		return st, economy.Account{}, economy.Board{}, err
	}
	acc, err := s.engine.Account(id)
	if err != nil {
		return st, economy.Account{}, economy.Board{}, err
	}
	return st, acc, s.engine.Board(), nil
}

func (s *SessionManager) Overview() (round.State, economy.Board, int64) {
	return s.round.Current(), s.engine.Board(), s.engine.Treasury()
}

func (s *SessionManager) ResetGameStart(ctx context.Context) (time.Time, error) {
	t := s.now()
	if s.store != nil {
		if err := s.store.ResetGameStartEpoch(ctx, t); err != nil {
			return time.Time{}, err
		}
	}
	s.round.SetStart(t)
	return t, nil
}

func (s *SessionManager) SessionInfo(playerID uuid.UUID) ([]byte, string, error) {
	if _, err := s.engine.Account(playerID); err != nil {
		return nil, "", ErrNoSession
	}
	if s.socket == nil {
		return nil, "", ErrNoSocket
	}
	return s.socket.GetPublicKey(), s.socket.GetAddr(), nil
}

// Authenticate accepts a token holding the raw player ID of a joined player.
func (s *SessionManager) Authenticate(token []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(token)
	if err != nil {
		return uuid.Nil, errors.New("invalid token")
	}
	if _, err := s.engine.Account(id); err != nil {
		return uuid.Nil, ErrNoSession
	}

	s.logger.Info(fmt.Sprintf("authenticated player: %s", id))
	return id, nil
}

func (s *SessionManager) StopAll() {
	s.Lock()
	if s.stopped {
		s.Unlock()
		return
	}
	s.stopped = true
	s.Unlock()

	s.round.Stop()
	<-s.done
	s.logger.Info("round loop stopped")
}

func (s *SessionManager) persist(ids ...uuid.UUID) {
	if s.store == nil {
		return
	}
	for _, id := range ids {
		snap, err := s.engine.Snapshot(id)
		if err != nil {
			continue
		}
		if err := s.store.SaveSession(context.Background(), snap); err != nil {
			s.logger.Error(fmt.Sprintf("caching session of %s: %s", id, err))
		}
	}
}

func (s *SessionManager) publishEvent(ev economy.Event) {
	s.logger.Info(fmt.Sprintf("round %d: %s by %s at (%d,%d) amount %d", ev.Round, ev.Kind, ev.Player, ev.Position.Col, ev.Position.Row, ev.Amount))
	if s.socket == nil {
		return
	}
	fields := map[string]any{
		"kind":     string(ev.Kind),
		"round":    ev.Round,
		"player":   ev.Player.String(),
		"position": PositionFields(ev.Position),
		"amount":   ev.Amount,
	}
	if ev.Err != "" {
		fields["error"] = ev.Err
	}
	payload, err := marshalFields(fields)
	if err != nil {
		s.logger.Error(fmt.Sprintf("encoding event: %s", err))
		return
	}
	s.socket.BroadcastToClients(s.engine.Players(), eventRecordType, payload)
}

func (s *SessionManager) listenRoundChan() {
	defer close(s.done)
	stateChan, replyChan, endChan := s.round.StateChan(), s.round.ReplyChan(), s.round.EndChan()
	for {
		select {
		case val, ok := <-stateChan:
			if !ok {
				stateChan = nil
				continue
			}
			if s.socket != nil {
				s.socket.BroadcastToClients(s.engine.Players(), roundStateRecordType, val)
			}
		case rep, ok := <-replyChan:
			if !ok {
				replyChan = nil
				continue
			}
			if s.socket != nil {
				s.socket.BroadcastToClients([]uuid.UUID{rep.Player}, actionResultRecordType, rep.Payload)
			}
		case val, ok := <-endChan:
			if ok && s.socket != nil {
				s.socket.BroadcastToClients(s.engine.Players(), roundEndedRecordType, val)
			}
			return
		}
	}
}

func (s *SessionManager) writePlayerRequest(pID uuid.UUID, actionType byte, payload []byte) {
	s.RLock()
	defer s.RUnlock()
	if s.stopped {
		s.logger.Warning(fmt.Sprintf("dropped request of %s: %s", pID, ErrStopped))
		return
	}
	if _, err := s.engine.Account(pID); err != nil {
		s.logger.Warning("received request for player without session")
		return
	}

	frame := make([]byte, 0, frameHeaderLen+len(payload))
	frame = append(frame, actionType)
	frame = append(frame, pID[:]...)
	frame = append(frame, payload...)
	s.round.ActionChan() <- frame
}
