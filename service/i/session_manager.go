package i

import (
	"context"
	"time"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/google/uuid"
)

// SessionManager owns the players of the shared round and their cached sessions.
type SessionManager interface {
	// Join registers the player, restoring a cached session when one exists.
	Join(ctx context.Context, id uuid.UUID, nickname string) (economy.Account, error)

	Claim(ctx context.Context, id uuid.UUID, pos maze.Position) (economy.Account, error)
	Move(ctx context.Context, id uuid.UUID, to maze.Position) (economy.MoveResult, economy.Account, error)
	BuyGold(ctx context.Context, id uuid.UUID, amount int64) (int64, economy.Account, error)
	Hint(id uuid.UUID) (maze.Hint, error)

	// State returns the round clock, the player's account and the board.
	State(id uuid.UUID) (round.State, economy.Account, economy.Board, error)

	// Overview returns the round clock, the board and the treasury.
	Overview() (round.State, economy.Board, int64)

	// ResetGameStart moves the game start to now, restarting round numbering.
	ResetGameStart(ctx context.Context) (time.Time, error)

	// SessionInfo returns the public key, socket address.
	SessionInfo(uuid.UUID) ([]byte, string, error)

	StopAll()
}
