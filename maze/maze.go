package maze

import (
	"errors"
	"math/rand/v2"
)

// Maze-related errors.
var (
	ErrInvalidDimension = errors.New("maze dimension must be at least 1")
)

// Position is a grid coordinate, 0-indexed.
type Position struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Walls reports which sides of a cell are closed.
type Walls struct {
	Top    bool `json:"top"`
	Right  bool `json:"right"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
}

// Cell is a single maze square. Walls are kept symmetric with the neighbours.
type Cell struct {
	Col   int   `json:"col"`
	Row   int   `json:"row"`
	Walls Walls `json:"walls"`

	visited bool
}

// Maze is a rows x cols grid of cells stored row-major (index = col + row*cols).
type Maze struct {
	rows  int
	cols  int
	cells []Cell
}

type options struct {
	rng *rand.Rand
}

// Option configures maze generation.
type Option func(*options)

// WithSeed makes generation deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand uses r as the randomness source.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// New builds a perfect maze (a spanning tree of open passages) over a rows x cols grid.
func New(rows, cols int, opts ...Option) (*Maze, error) {
	if rows < 1 || cols < 1 {
		return nil, ErrInvalidDimension
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	m := newWalled(rows, cols)
	m.carve(o.rng)
	return m, nil
}

// newWalled returns a grid with every wall present.
func newWalled(rows, cols int) *Maze {
	cells := make([]Cell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cells = append(cells, Cell{
				Col:   c,
				Row:   r,
				Walls: Walls{Top: true, Right: true, Bottom: true, Left: true},
			})
		}
	}
	return &Maze{rows: rows, cols: cols, cells: cells}
}

// carve runs an iterative randomized depth-first search from cell 0.
func (m *Maze) carve(rng *rand.Rand) {
	current := 0
	m.cells[current].visited = true
	stack := make([]int, 0, len(m.cells))

	for {
		if next, ok := m.randomUnvisitedNeighbor(current, rng); ok {
			m.cells[next].visited = true
			stack = append(stack, current)
			m.removeWallBetween(current, next)
			current = next
			continue
		}
		if len(stack) == 0 {
			break
		}
		current = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	for i := range m.cells {
		m.cells[i].visited = false
	}
}

func (m *Maze) randomUnvisitedNeighbor(idx int, rng *rand.Rand) (int, bool) {
	cell := m.cells[idx]
	var candidates [4]int
	n := 0
	for _, d := range directions {
		c, r := cell.Col+d.dCol, cell.Row+d.dRow
		if !m.InBound(c, r) {
			continue
		}
		if j := m.index(c, r); !m.cells[j].visited {
			candidates[n] = j
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return candidates[rng.IntN(n)], true
}

func (m *Maze) removeWallBetween(a, b int) {
	ca, cb := &m.cells[a], &m.cells[b]
	switch {
	case ca.Col-cb.Col == 1:
		ca.Walls.Left, cb.Walls.Right = false, false
	case ca.Col-cb.Col == -1:
		ca.Walls.Right, cb.Walls.Left = false, false
	case ca.Row-cb.Row == 1:
		ca.Walls.Top, cb.Walls.Bottom = false, false
	case ca.Row-cb.Row == -1:
		ca.Walls.Bottom, cb.Walls.Top = false, false
	}
}

// Rows returns the grid height.
func (m *Maze) Rows() int { return m.rows }

// Cols returns the grid width.
func (m *Maze) Cols() int { return m.cols }

// InBound reports whether (col, row) lies on the grid.
func (m *Maze) InBound(col, row int) bool {
	return col >= 0 && row >= 0 && col < m.cols && row < m.rows
}

// Cell returns the cell at (col, row).
func (m *Maze) Cell(col, row int) (Cell, bool) {
	if !m.InBound(col, row) {
		return Cell{}, false
	}
	return m.cells[m.index(col, row)], true
}

// Cells returns a copy of all cells in row-major order.
func (m *Maze) Cells() []Cell {
	out := make([]Cell, len(m.cells))
	copy(out, m.cells)
	return out
}

// OpenPassages counts adjacent cell pairs without a wall between them.
func (m *Maze) OpenPassages() int {
	open := 0
	for _, cell := range m.cells {
		if cell.Col+1 < m.cols && !cell.Walls.Right {
			open++
		}
		if cell.Row+1 < m.rows && !cell.Walls.Bottom {
			open++
		}
	}
	return open
}

func (m *Maze) index(col, row int) int {
	return col + row*m.cols
}

// IsBorder reports whether p sits on the outer ring of a rows x cols grid.
func IsBorder(p Position, rows, cols int) bool {
	return p.Row == 0 || p.Row == rows-1 || p.Col == 0 || p.Col == cols-1
}

// ChooseExit picks a border cell uniformly at random.
func ChooseExit(rows, cols int, rng *rand.Rand) Position {
	border := make([]Position, 0, 2*(rows+cols))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p := Position{Col: c, Row: r}
			if IsBorder(p, rows, cols) {
				border = append(border, p)
			}
		}
	}
	if len(border) == 0 {
		return Position{}
	}
	return border[rng.IntN(len(border))]
}
