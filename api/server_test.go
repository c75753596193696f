package api

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/beka-birhanu/vinom-treasure-maze/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeManager struct {
	claimErr error
	moveErr  error
	claimed  maze.Position
}

func (f *fakeManager) Join(_ context.Context, id uuid.UUID, nickname string) (economy.Account, error) {
	return economy.Account{PlayerID: id, Nickname: nickname, Gold: 10000}, nil
}

func (f *fakeManager) Claim(_ context.Context, id uuid.UUID, pos maze.Position) (economy.Account, error) {
	f.claimed = pos
	if f.claimErr != nil {
		return economy.Account{}, f.claimErr
	}
	return economy.Account{PlayerID: id, Gold: 9000, Loss: 1000, HasClaimedPlot: true, Position: &pos}, nil
}

func (f *fakeManager) Move(_ context.Context, id uuid.UUID, to maze.Position) (economy.MoveResult, economy.Account, error) {
	if f.moveErr != nil {
		return economy.MoveResult{}, economy.Account{}, f.moveErr
	}
	return economy.MoveResult{Position: to, Fee: 50}, economy.Account{PlayerID: id, Position: &to}, nil
}

func (f *fakeManager) BuyGold(_ context.Context, id uuid.UUID, amount int64) (int64, economy.Account, error) {
	return amount * 100, economy.Account{PlayerID: id, Gold: 10000 + amount*100}, nil
}

func (f *fakeManager) Hint(uuid.UUID) (maze.Hint, error) {
	return maze.Hint{Path: []maze.Position{{Col: 0, Row: 1}, {Col: 0, Row: 2}}}, nil
}

func (f *fakeManager) State(id uuid.UUID) (round.State, economy.Account, economy.Board, error) {
	return round.State{Phase: round.PhasePlay, TimeRemaining: 42 * time.Second, RoundNumber: 3},
		economy.Account{PlayerID: id}, economy.Board{Round: 3}, nil
}

func (f *fakeManager) Overview() (round.State, economy.Board, int64) {
	return round.State{}, economy.Board{}, 0
}

func (f *fakeManager) ResetGameStart(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeManager) SessionInfo(uuid.UUID) ([]byte, string, error) {
	return []byte("pub"), "127.0.0.1:9000", nil
}

func (f *fakeManager) StopAll() {}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestServer_StatusCodes(t *testing.T) {
	id := uuid.New().String()
	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: %w", economy.ErrPaymentFailed, payment.ErrTimeout), codes.Aborted},
		{economy.ErrUnknownPlayer, codes.NotFound},
		{service.ErrNoSession, codes.NotFound},
		{economy.ErrPlotOwned, codes.FailedPrecondition},
		{economy.ErrWrongPhase, codes.FailedPrecondition},
		{economy.ErrOutOfBounds, codes.InvalidArgument},
		{economy.ErrActionPending, codes.ResourceExhausted},
		{fmt.Errorf("%w: %w", economy.ErrPaymentFailed, payment.ErrInvalidAmount), codes.InvalidArgument},
		{service.ErrInvalidField, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			s := &Server{sessionManager: &fakeManager{claimErr: tc.err}}
			_, err := s.Claim(context.Background(), request(t, map[string]any{"playerId": id, "col": 1, "row": 2}))
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestServer_RequestValidation(t *testing.T) {
	s := &Server{sessionManager: &fakeManager{}}
	ctx := context.Background()

	_, err := s.Join(ctx, request(t, map[string]any{"playerId": "nope"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Move(ctx, request(t, map[string]any{"playerId": uuid.New().String(), "col": 1}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.BuyGold(ctx, request(t, map[string]any{"playerId": uuid.New().String()}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRegister_RequiresManager(t *testing.T) {
	assert.ErrorIs(t, RegisterNewSessionManager(grpc.NewServer(), nil), ErrNoSessionManager)
}

func TestSession_OverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	fm := &fakeManager{}
	require.NoError(t, RegisterNewSessionManager(srv, fm))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := NewSessionClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id := uuid.New().String()

	out, err := client.Join(ctx, request(t, map[string]any{"playerId": id, "nickname": "ada"}))
	require.NoError(t, err)
	acc := out.AsMap()["account"].(map[string]any)
	assert.Equal(t, "ada", acc["nickname"])
	assert.Equal(t, float64(10000), acc["goldBalance"])

	out, err = client.Claim(ctx, request(t, map[string]any{"playerId": id, "col": 4, "row": 5}))
	require.NoError(t, err)
	assert.Equal(t, maze.Position{Col: 4, Row: 5}, fm.claimed)
	assert.Equal(t, true, out.AsMap()["account"].(map[string]any)["hasClaimedPlot"])

	out, err = client.State(ctx, request(t, map[string]any{"playerId": id}))
	require.NoError(t, err)
	rnd := out.AsMap()["round"].(map[string]any)
	assert.Equal(t, "play", rnd["phase"])
	assert.Equal(t, float64(42000), rnd["timeRemainingMs"])

	out, err = client.Hint(ctx, request(t, map[string]any{"playerId": id}))
	require.NoError(t, err)
	assert.Len(t, out.AsMap()["path"], 2)

	out, err = client.SessionInfo(ctx, request(t, map[string]any{"playerId": id}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", out.AsMap()["serverAddr"])

	fm.moveErr = economy.ErrIllegalMove
	_, err = client.Move(ctx, request(t, map[string]any{"playerId": id, "col": 9, "row": 9}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
