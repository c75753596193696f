package maze

import "container/heap"

// Hint is a suggested route to a target, excluding the starting cell.
// Approximate is set when no wall-respecting route exists and the path
// was computed over the bare grid; such a path is for display only.
type Hint struct {
	Path        []Position `json:"path"`
	Approximate bool       `json:"approximate"`
}

// FindPath returns a shortest legal route from "from" to "to".
func (m *Maze) FindPath(from, to Position) Hint {
	if from == to || !m.InBound(from.Col, from.Row) || !m.InBound(to.Col, to.Row) {
		return Hint{Path: []Position{}}
	}
	if path := m.aStar(from, to); path != nil {
		return Hint{Path: path}
	}
	return Hint{Path: m.gridBFS(from, to), Approximate: true}
}

type node struct {
	idx  int
	g, f int
	h    int
	seq  int
	heap int
}

type openSet []*node

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	if s[i].h != s[j].h {
		return s[i].h < s[j].h
	}
	return s[i].seq < s[j].seq
}

func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].heap = i
	s[j].heap = j
}

func (s *openSet) Push(x any) {
	n := x.(*node)
	n.heap = len(*s)
	*s = append(*s, n)
}

func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	n.heap = -1
	return n
}

func (m *Maze) aStar(from, to Position) []Position {
	start := m.index(from.Col, from.Row)
	goal := m.index(to.Col, to.Row)

	cameFrom := make([]int, len(m.cells))
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	closed := make([]bool, len(m.cells))
	nodes := make(map[int]*node)

	h0 := manhattan(from, to)
	first := &node{idx: start, g: 0, h: h0, f: h0}
	nodes[start] = first
	open := &openSet{}
	heap.Push(open, first)
	seq := 1

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if cur.idx == goal {
			return m.reconstruct(cameFrom, start, goal)
		}
		closed[cur.idx] = true

		pos := m.position(cur.idx)
		for _, next := range m.Moves(pos) {
			ni := m.index(next.Col, next.Row)
			if closed[ni] {
				continue
			}
			g := cur.g + 1
			if n, ok := nodes[ni]; ok {
				if g >= n.g {
					continue
				}
				n.g, n.f = g, g+n.h
				cameFrom[ni] = cur.idx
				heap.Fix(open, n.heap)
				continue
			}
			h := manhattan(next, to)
			n := &node{idx: ni, g: g, h: h, f: g + h, seq: seq}
			seq++
			nodes[ni] = n
			cameFrom[ni] = cur.idx
			heap.Push(open, n)
		}
	}
	return nil
}

// gridBFS searches the bare grid, ignoring walls.
func (m *Maze) gridBFS(from, to Position) []Position {
	start := m.index(from.Col, from.Row)
	goal := m.index(to.Col, to.Row)

	cameFrom := make([]int, len(m.cells))
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	seen := make([]bool, len(m.cells))
	seen[start] = true
	queue := []int{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == goal {
			return m.reconstruct(cameFrom, start, goal)
		}
		p := m.position(cur)
		for _, d := range directions {
			c, r := p.Col+d.dCol, p.Row+d.dRow
			if !m.InBound(c, r) {
				continue
			}
			ni := m.index(c, r)
			if seen[ni] {
				continue
			}
			seen[ni] = true
			cameFrom[ni] = cur
			queue = append(queue, ni)
		}
	}
	return []Position{}
}

func (m *Maze) reconstruct(cameFrom []int, start, goal int) []Position {
	var rev []Position
	for cur := goal; cur != start; cur = cameFrom[cur] {
		rev = append(rev, m.position(cur))
	}
	path := make([]Position, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

func (m *Maze) position(idx int) Position {
	return Position{Col: idx % m.cols, Row: idx / m.cols}
}

func manhattan(a, b Position) int {
	return abs(a.Col-b.Col) + abs(a.Row-b.Row)
}
