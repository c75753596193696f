package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Decoding errors.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// Wall bits of an encoded cell.
const (
	wallTop = 1 << iota
	wallRight
	wallBottom
	wallLeft
)

// RoundFields encodes the round clock.
func RoundFields(st round.State) map[string]any {
	return map[string]any{
		"phase":           string(st.Phase),
		"timeRemainingMs": st.TimeRemaining.Milliseconds(),
		"roundNumber":     st.RoundNumber,
		"canJoinNow":      st.CanJoinNow,
	}
}

// BoardFields encodes the board. Walls are one bitmask per cell, row-major.
func BoardFields(b economy.Board) map[string]any {
	out := map[string]any{
		"round": b.Round,
		"exit":  PositionFields(b.Exit),
	}
	if b.Maze == nil {
		return out
	}
	out["rows"] = b.Maze.Rows()
	out["cols"] = b.Maze.Cols()

	cells := b.Maze.Cells()
	walls := make([]any, 0, len(cells))
	for _, c := range cells {
		var w int64
		if c.Walls.Top {
			w |= wallTop
		}
		if c.Walls.Right {
			w |= wallRight
		}
		if c.Walls.Bottom {
			w |= wallBottom
		}
		if c.Walls.Left {
			w |= wallLeft
		}
		walls = append(walls, w)
	}
	out["walls"] = walls

	plots := make([]any, 0)
	for row, line := range b.Plots {
		for col, p := range line {
			if !p.Owned() {
				continue
			}
			plots = append(plots, map[string]any{
				"col":      col,
				"row":      row,
				"owner":    p.Owner.String(),
				"nickname": p.Nickname,
			})
		}
	}
	out["plots"] = plots

	treasures := make([]any, 0, len(b.Treasures))
	for _, t := range b.Treasures {
		treasures = append(treasures, map[string]any{
			"col":       t.Col,
			"row":       t.Row,
			"value":     t.Value,
			"collected": t.Collected,
		})
	}
	out["treasures"] = treasures
	return out
}

// AccountFields encodes a player's account.
func AccountFields(a economy.Account) map[string]any {
	out := map[string]any{
		"playerId":       a.PlayerID.String(),
		"nickname":       a.Nickname,
		"goldBalance":    a.Gold,
		"profit":         a.Profit,
		"loss":           a.Loss,
		"hasClaimedPlot": a.HasClaimedPlot,
		"lastFee":        a.LastFee,
		"lastCollection": a.LastCollection,
		"score":          a.Score,
		"finished":       a.Finished,
	}
	if a.Position != nil {
		out["position"] = PositionFields(*a.Position)
	}
	return out
}

// MoveFields encodes a move result.
func MoveFields(res economy.MoveResult) map[string]any {
	out := map[string]any{
		"position":    PositionFields(res.Position),
		"fee":         res.Fee,
		"collected":   res.Collected,
		"reachedExit": res.ReachedExit,
	}
	if res.FeeRecipient != nil {
		out["feeRecipient"] = res.FeeRecipient.String()
	}
	return out
}

// HintFields encodes a hint path.
func HintFields(h maze.Hint) map[string]any {
	path := make([]any, 0, len(h.Path))
	for _, p := range h.Path {
		path = append(path, PositionFields(p))
	}
	return map[string]any{
		"path":        path,
		"approximate": h.Approximate,
	}
}

// PositionFields encodes a grid position.
func PositionFields(p maze.Position) map[string]any {
	return map[string]any{"col": p.Col, "row": p.Row}
}

// PositionFrom reads "col" and "row" from s.
func PositionFrom(s *structpb.Struct) (maze.Position, error) {
	col, err := intField(s, "col", math.MaxInt32)
	if err != nil {
		return maze.Position{}, err
	}
	row, err := intField(s, "row", math.MaxInt32)
	if err != nil {
		return maze.Position{}, err
	}
	return maze.Position{Col: int(col), Row: int(row)}, nil
}

// AmountFrom reads "amount" from s.
func AmountFrom(s *structpb.Struct) (int64, error) {
	return intField(s, "amount", 1<<53)
}

// StringFrom reads an optional string field.
func StringFrom(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// intField reads a whole number within [-limit, limit].
func intField(s *structpb.Struct, key string, limit float64) (int64, error) {
	v, err := numberField(s, key)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v != math.Trunc(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("%w: %s must be a whole number within ±%.0f", ErrInvalidField, key, limit)
	}
	return int64(v), nil
}

func numberField(s *structpb.Struct, key string) (float64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMissingField, key)
	}
	return v.GetNumberValue(), nil
}

func marshalFields(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func unmarshalStruct(payload []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(payload, s); err != nil {
		return nil, err
	}
	return s, nil
}
