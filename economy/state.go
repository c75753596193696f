package economy

import (
	"time"

	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/treasure"
	"github.com/google/uuid"
)

// Plot is claim ownership of one grid cell. A nil Owner means unowned.
type Plot struct {
	Owner    uuid.UUID `json:"owner"`
	Nickname string    `json:"nickname,omitempty"`

	reservedBy uuid.UUID
}

// Owned reports whether a player holds the plot.
func (p Plot) Owned() bool {
	return p.Owner != uuid.Nil
}

func (p Plot) available() bool {
	return p.Owner == uuid.Nil && p.reservedBy == uuid.Nil
}

// Board is everything regenerated at the start of a round.
// The maze is immutable after generation; only plot owners and treasure
// collection change during a round.
type Board struct {
	Round     int                 `json:"round"`
	StartedAt time.Time           `json:"startedAt"`
	Maze      *maze.Maze          `json:"-"`
	Plots     [][]Plot            `json:"plots"` // [row][col]
	Treasures []treasure.Treasure `json:"treasures"`
	Exit      maze.Position       `json:"exit"`
}

func (b *Board) plot(p maze.Position) *Plot {
	return &b.Plots[p.Row][p.Col]
}

func (b *Board) treasureAt(p maze.Position) int {
	for i, t := range b.Treasures {
		if t.Col == p.Col && t.Row == p.Row {
			return i
		}
	}
	return -1
}

func (b *Board) clone() Board {
	out := Board{Round: b.Round, StartedAt: b.StartedAt, Maze: b.Maze, Exit: b.Exit}
	out.Plots = make([][]Plot, len(b.Plots))
	for r, row := range b.Plots {
		out.Plots[r] = make([]Plot, len(row))
		for c, p := range row {
			out.Plots[r][c] = Plot{Owner: p.Owner, Nickname: p.Nickname}
		}
	}
	out.Treasures = make([]treasure.Treasure, len(b.Treasures))
	copy(out.Treasures, b.Treasures)
	return out
}

// Account is a player's economy state.
type Account struct {
	PlayerID       uuid.UUID      `json:"playerId"`
	Nickname       string         `json:"nickname"`
	Gold           int64          `json:"goldBalance"`
	Profit         int64          `json:"profit"`
	Loss           int64          `json:"loss"`
	HasClaimedPlot bool           `json:"hasClaimedPlot"`
	Position       *maze.Position `json:"position"`
	LastFee        int64          `json:"lastFee"`
	LastCollection int64          `json:"lastCollection"`
	Score          int64          `json:"score"`
	Finished       bool           `json:"finished"`

	pending bool
}

func (a *Account) clone() Account {
	out := *a
	out.pending = false
	if a.Position != nil {
		p := *a.Position
		out.Position = &p
	}
	return out
}

func (a *Account) resetRound() {
	a.HasClaimedPlot = false
	a.Position = nil
	a.Score = 0
	a.Finished = false
}

// Snapshot is the cached part of an account restored after a reload.
type Snapshot struct {
	PlayerID       uuid.UUID
	Nickname       string
	Round          int
	RoundStartedAt time.Time
	Position       *maze.Position
	HasClaimedPlot bool
	Gold           int64
	Profit         int64
	Loss           int64
}

// MoveResult describes what a successful move did.
type MoveResult struct {
	Position     maze.Position `json:"position"`
	Fee          int64         `json:"fee"`
	FeeRecipient *uuid.UUID    `json:"feeRecipient,omitempty"`
	Collected    int64         `json:"collected"`
	ReachedExit  bool          `json:"reachedExit"`
}
