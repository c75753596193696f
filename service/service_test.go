package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	logger "github.com/beka-birhanu/vinom-common/log"
	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/beka-birhanu/vinom-treasure-maze/service/i"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]economy.Snapshot
	start    time.Time
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]economy.Snapshot)}
}

func (m *memStore) SaveSession(_ context.Context, snap economy.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[snap.PlayerID] = snap
	return nil
}

func (m *memStore) LoadSession(_ context.Context, id uuid.UUID) (economy.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.sessions[id]
	return snap, ok, nil
}

func (m *memStore) ResetGameStartEpoch(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = t
	return nil
}

func (m *memStore) get(id uuid.UUID) (economy.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.sessions[id]
	return snap, ok
}

func testLogger(t *testing.T) general_i.Logger {
	t.Helper()
	l, err := logger.New("SERVICE-TEST", "", io.Discard)
	require.NoError(t, err)
	return l
}

func newTestEngine(t *testing.T) *economy.Engine {
	t.Helper()
	l := testLogger(t)
	gw, err := payment.NewGateway(&payment.Config{
		Variant: payment.LocalSimulation,
		Settler: &payment.SimulatedSettler{},
		Logger:  l,
	})
	require.NoError(t, err)

	seed := uint64(11)
	rules := economy.DefaultRules()
	rules.Rows, rules.Cols = 5, 5
	rules.FeeRouting = economy.FeeToTreasury
	rules.Payments = gw
	rules.Logger = l
	rules.Seed = &seed
	e, err := economy.NewEngine(&rules)
	require.NoError(t, err)
	return e
}

func newTestManager(t *testing.T, e *economy.Engine, store SessionStore, c *clock) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(&Config{
		Store:        store,
		Engine:       e,
		Schedule:     round.DefaultSchedule(),
		Start:        t0,
		PollInterval: 10 * time.Millisecond,
		Now:          c.Now,
		Logger:       testLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(sm.StopAll)
	return sm
}

func TestSessionManager_ClaimMoveAndPersist(t *testing.T) {
	c := &clock{t: t0.Add(2 * time.Second)}
	store := newMemStore()
	e := newTestEngine(t)
	sm := newTestManager(t, e, store, c)
	ctx := context.Background()
	id := uuid.New()

	acc, err := sm.Join(ctx, id, "ada")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), acc.Gold)
	_, ok := store.get(id)
	assert.True(t, ok, "join caches the session")

	start := maze.Position{Col: 2, Row: 2}
	acc, err = sm.Claim(ctx, id, start)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), acc.Gold)
	assert.Equal(t, int64(1000), acc.Loss)

	snap, ok := store.get(id)
	require.True(t, ok)
	assert.True(t, snap.HasClaimedPlot)
	assert.Equal(t, start, *snap.Position)
	assert.Equal(t, 1, snap.Round)

	_, _, err = sm.Move(ctx, id, maze.Position{Col: 2, Row: 1})
	assert.ErrorIs(t, err, economy.ErrWrongPhase)

	c.Set(t0.Add(15 * time.Second))
	_, _, board, err := sm.State(id)
	require.NoError(t, err)
	to := board.Maze.Moves(start)[0]

	res, acc, err := sm.Move(ctx, id, to)
	require.NoError(t, err)
	assert.Equal(t, to, res.Position)
	assert.Equal(t, to, *acc.Position)

	snap, _ = store.get(id)
	assert.Equal(t, to, *snap.Position)
}

func TestSessionManager_RestoresCachedSession(t *testing.T) {
	c := &clock{t: t0.Add(2 * time.Second)}
	store := newMemStore()
	id := uuid.New()
	ctx := context.Background()

	first := newTestManager(t, newTestEngine(t), store, c)
	_, err := first.Join(ctx, id, "ada")
	require.NoError(t, err)
	_, _, err = first.BuyGold(ctx, id, 250)
	require.NoError(t, err)

	second := newTestManager(t, newTestEngine(t), store, c)
	acc, err := second.Join(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10250), acc.Gold)
	assert.Equal(t, "ada", acc.Nickname)
}

func TestSessionManager_Validation(t *testing.T) {
	c := &clock{t: t0}
	sm := newTestManager(t, newTestEngine(t), nil, c)

	_, err := sm.Join(context.Background(), uuid.Nil, "x")
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, _, err = sm.SessionInfo(uuid.New())
	assert.ErrorIs(t, err, ErrNoSession)

	id := uuid.New()
	_, err = sm.Join(context.Background(), id, "x")
	require.NoError(t, err)
	_, _, err = sm.SessionInfo(id)
	assert.ErrorIs(t, err, ErrNoSocket)

	got, err := sm.Authenticate(id[:])
	require.NoError(t, err)
	assert.Equal(t, id, got)
	_, err = sm.Authenticate([]byte("short"))
	assert.Error(t, err)
}

func TestSessionManager_ResetGameStart(t *testing.T) {
	c := &clock{t: t0.Add(300 * time.Second)}
	store := newMemStore()
	sm := newTestManager(t, newTestEngine(t), store, c)

	st, _, _ := sm.Overview()
	assert.Equal(t, 3, st.RoundNumber)

	at, err := sm.ResetGameStart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c.Now(), at)
	assert.Equal(t, at, store.start)

	st, _, _ = sm.Overview()
	assert.Equal(t, 1, st.RoundNumber)
	assert.Equal(t, round.PhaseClaim, st.Phase)
}

func drain[T any](ch <-chan T) {
	go func() {
		for range ch {
		}
	}()
}

func frame(t byte, id uuid.UUID, fields map[string]any) []byte {
	out := append([]byte{t}, id[:]...)
	if fields != nil {
		b, err := marshalFields(fields)
		if err != nil {
			panic(err)
		}
		out = append(out, b...)
	}
	return out
}

func replyFields(t *testing.T, rep i.Reply) map[string]any {
	t.Helper()
	s, err := unmarshalStruct(rep.Payload)
	require.NoError(t, err)
	return s.AsMap()
}

func TestRound_ActionFrames(t *testing.T) {
	c := &clock{t: t0.Add(time.Second)}
	e := newTestEngine(t)
	var (
		mu      sync.Mutex
		changed []uuid.UUID
	)
	r, err := NewRound(&RoundConfig{
		Engine:       e,
		Schedule:     round.DefaultSchedule(),
		Start:        t0,
		PollInterval: 10 * time.Millisecond,
		Now:          c.Now,
		Logger:       testLogger(t),
		AfterAction: func(ids ...uuid.UUID) {
			mu.Lock()
			changed = append(changed, ids...)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	drain(r.StateChan())
	go r.Start()

	id := uuid.New()
	e.Join(id, "ada")

	r.ActionChan() <- frame(claimActionType, id, map[string]any{"col": 1, "row": 1})
	got := replyFields(t, <-r.ReplyChan())
	assert.Equal(t, "claim", got["action"])
	assert.Equal(t, true, got["ok"])
	acc := got["account"].(map[string]any)
	assert.Equal(t, float64(9000), acc["goldBalance"])

	r.ActionChan() <- frame(claimActionType, id, map[string]any{"col": 2})
	got = replyFields(t, <-r.ReplyChan())
	assert.Equal(t, false, got["ok"])
	assert.Contains(t, got["error"], "row")

	r.ActionChan() <- frame(hintActionType, id, nil)
	got = replyFields(t, <-r.ReplyChan())
	assert.Equal(t, "hint", got["action"])
	assert.Contains(t, got, "hint")

	r.ActionChan() <- frame(stateRequestActionType, id, nil)
	got = replyFields(t, <-r.ReplyChan())
	roundFields := got["round"].(map[string]any)
	assert.Equal(t, "claim", roundFields["phase"])
	board := got["board"].(map[string]any)
	assert.Len(t, board["walls"], 25)
	assert.Len(t, board["plots"], 1)

	r.ActionChan() <- frame(dismissActionType, id, nil)
	got = replyFields(t, <-r.ReplyChan())
	assert.Equal(t, "dismiss", got["action"])
	assert.Equal(t, true, got["ok"])

	mu.Lock()
	assert.Equal(t, []uuid.UUID{id}, changed)
	mu.Unlock()

	ended := make(chan []byte, 1)
	go func() { ended <- <-r.EndChan() }()
	r.Stop()
	final := <-ended
	s, err := unmarshalStruct(final)
	require.NoError(t, err)
	assert.Contains(t, s.AsMap(), "treasury")
	assert.Equal(t, float64(0), s.AsMap()["nextClaimMs"])
}

func TestRound_TickSyncsBoardAndDrainsEvents(t *testing.T) {
	c := &clock{t: t0.Add(time.Second)}
	e := newTestEngine(t)
	events := make(chan economy.Event, 16)
	r, err := NewRound(&RoundConfig{
		Engine:       e,
		Schedule:     round.DefaultSchedule(),
		Start:        t0,
		PollInterval: 5 * time.Millisecond,
		Now:          c.Now,
		Logger:       testLogger(t),
		OnEvent:      func(ev economy.Event) { events <- ev },
	})
	require.NoError(t, err)
	drain(r.StateChan())
	drain(r.ReplyChan())
	go r.Start()

	ev := <-events
	assert.Equal(t, economy.EventRoundStarted, ev.Kind)
	assert.Equal(t, 1, ev.Round)

	c.Set(t0.Add(131 * time.Second))
	ev = <-events
	assert.Equal(t, economy.EventRoundStarted, ev.Kind)
	assert.Equal(t, 2, ev.Round)
	assert.Equal(t, 2, e.Board().Round)

	go func() { <-r.EndChan() }()
	r.Stop()
}

func TestWire_DecodeErrors(t *testing.T) {
	_, err := decodePosition([]byte{0xff, 0x01})
	assert.Error(t, err)

	s, err := structpb.NewStruct(map[string]any{"amount": "ten"})
	require.NoError(t, err)
	_, err = AmountFrom(s)
	assert.ErrorIs(t, err, ErrMissingField)

	s, err = structpb.NewStruct(map[string]any{"amount": 12})
	require.NoError(t, err)
	n, err := AmountFrom(s)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	for _, bad := range []float64{2.5, 1e19, -1e19} {
		s, err = structpb.NewStruct(map[string]any{"amount": bad})
		require.NoError(t, err)
		_, err = AmountFrom(s)
		assert.ErrorIs(t, err, ErrInvalidField, "amount %v", bad)
	}

	s, err = structpb.NewStruct(map[string]any{"col": 1.5, "row": 2})
	require.NoError(t, err)
	_, err = PositionFrom(s)
	assert.ErrorIs(t, err, ErrInvalidField)
}
