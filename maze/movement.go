package maze

type direction struct {
	dCol, dRow int
}

// Order matches the generator's neighbour scan: up, right, down, left.
var directions = [4]direction{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// CanMoveTo reports whether a player standing on from may step onto (toCol, toRow).
// The target must be on the grid, orthogonally adjacent, and not behind a wall.
func (m *Maze) CanMoveTo(from Position, toCol, toRow int) bool {
	if !m.InBound(toCol, toRow) || !m.InBound(from.Col, from.Row) {
		return false
	}

	dx, dy := toCol-from.Col, toRow-from.Row
	if abs(dx)+abs(dy) != 1 {
		return false
	}

	walls := m.cells[m.index(from.Col, from.Row)].Walls
	switch {
	case dx == 1:
		return !walls.Right
	case dx == -1:
		return !walls.Left
	case dy == 1:
		return !walls.Bottom
	default:
		return !walls.Top
	}
}

// CanMoveTo is the free-function form of (*Maze).CanMoveTo.
func CanMoveTo(from Position, toCol, toRow int, m *Maze) bool {
	if m == nil {
		return false
	}
	return m.CanMoveTo(from, toCol, toRow)
}

// Moves lists the positions reachable from p in one legal step.
func (m *Maze) Moves(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range directions {
		c, r := p.Col+d.dCol, p.Row+d.dRow
		if m.CanMoveTo(p, c, r) {
			out = append(out, Position{Col: c, Row: r})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
