package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/beka-birhanu/vinom-treasure-maze/service"
	"github.com/beka-birhanu/vinom-treasure-maze/service/i"
	"github.com/google/uuid"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrNoSessionManager is returned when registering without a session manager.
var ErrNoSessionManager = errors.New("session manager is required")

type Server struct {
	sessionManager i.SessionManager

	UnimplementedSessionServer
}

func RegisterNewSessionManager(gsr grpc.ServiceRegistrar, sm i.SessionManager) error {
	if sm == nil {
		return ErrNoSessionManager
	}
	server := &Server{
		sessionManager: sm,
	}

	RegisterSessionServer(gsr, server)
	return nil
}

func (s *Server) Join(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	acc, err := s.sessionManager.Join(ctx, id, service.StringFrom(r, "nickname"))
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"account": service.AccountFields(acc)})
}

func (s *Server) Claim(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	pos, err := service.PositionFrom(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	acc, err := s.sessionManager.Claim(ctx, id, pos)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"account": service.AccountFields(acc)})
}

func (s *Server) Move(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	pos, err := service.PositionFrom(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, acc, err := s.sessionManager.Move(ctx, id, pos)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"move":    service.MoveFields(res),
		"account": service.AccountFields(acc),
	})
}

func (s *Server) BuyGold(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	amount, err := service.AmountFrom(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	gold, acc, err := s.sessionManager.BuyGold(ctx, id, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"gold":    gold,
		"account": service.AccountFields(acc),
	})
}

func (s *Server) Hint(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	h, err := s.sessionManager.Hint(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(service.HintFields(h))
}

func (s *Server) State(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	st, acc, board, err := s.sessionManager.State(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"round":   service.RoundFields(st),
		"account": service.AccountFields(acc),
		"board":   service.BoardFields(board),
	})
}

func (s *Server) SessionInfo(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	id, err := playerID(r)
	if err != nil {
		return nil, err
	}
	pubKey, serverAddr, err := s.sessionManager.SessionInfo(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"serverPubKey": string(pubKey),
		"serverAddr":   serverAddr,
	})
}

func playerID(r *structpb.Struct) (uuid.UUID, error) {
	id, err := uuid.Parse(service.StringFrom(r, "playerId"))
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, fmt.Sprintf("parsing playerId: %s", err))
	}
	return id, nil
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, service.ErrInvalidField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, economy.ErrPaymentFailed), errors.Is(err, payment.ErrTimeout):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, economy.ErrUnknownPlayer), errors.Is(err, service.ErrNoSession):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, economy.ErrOutOfBounds), errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPlayer), errors.Is(err, service.ErrMissingField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, economy.ErrActionPending):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, service.ErrNoSocket):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, economy.ErrWrongPhase), errors.Is(err, economy.ErrPlotOwned),
		errors.Is(err, economy.ErrAlreadyClaimed), errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrNotClaimed), errors.Is(err, economy.ErrIllegalMove),
		errors.Is(err, economy.ErrRoundOver), errors.Is(err, economy.ErrNoBoard):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
