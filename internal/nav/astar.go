package nav

import (
	"container/heap"

	"github.com/annel0/tile-brawl/internal/vec"
)

// pathNode элемент открытого списка
type pathNode struct {
	cell  vec.Vec2
	g, f  int
	index int // Индекс в куче
}

// openList min-куча по f
type openList []*pathNode

func (pq openList) Len() int { return len(pq) }

func (pq openList) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	// При равенстве предпочитаем узлы ближе к цели, чтобы путь был детерминированным
	return pq[i].g > pq[j].g
}

func (pq openList) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openList) Push(x interface{}) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *openList) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.index = -1 // для безопасности
	*pq = old[0 : n-1]
	return item
}

var directions = [4]vec.Vec2{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}

// astar ищет путь по 4-связной сетке, манхэттенская эвристика.
// Возвращает ячейки от start до goal включительно или nil.
func astar(g Grid, start, goal vec.Vec2) []vec.Vec2 {
	if !g.Navigable(start) || !g.Navigable(goal) {
		return nil
	}
	if start == goal {
		return []vec.Vec2{start}
	}

	open := &openList{}
	heap.Init(open)
	nodes := map[vec.Vec2]*pathNode{}
	parent := map[vec.Vec2]vec.Vec2{}
	closed := map[vec.Vec2]bool{}

	first := &pathNode{cell: start, g: 0, f: start.ManhattanTo(goal)}
	nodes[start] = first
	heap.Push(open, first)

	for open.Len() > 0 {
		curr := heap.Pop(open).(*pathNode)
		if curr.cell == goal {
			return reconstruct(parent, start, goal)
		}
		closed[curr.cell] = true

		for _, d := range directions {
			next := curr.cell.Add(d)
			if closed[next] || !g.Navigable(next) {
				continue
			}
			gScore := curr.g + 1
			if existing, ok := nodes[next]; ok {
				if gScore < existing.g {
					existing.g = gScore
					existing.f = gScore + next.ManhattanTo(goal)
					parent[next] = curr.cell
					heap.Fix(open, existing.index)
				}
				continue
			}
			node := &pathNode{cell: next, g: gScore, f: gScore + next.ManhattanTo(goal)}
			nodes[next] = node
			parent[next] = curr.cell
			heap.Push(open, node)
		}
	}
	return nil
}

func reconstruct(parent map[vec.Vec2]vec.Vec2, start, goal vec.Vec2) []vec.Vec2 {
	path := []vec.Vec2{goal}
	for c := goal; c != start; {
		c = parent[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// simplify убирает промежуточные ячейки на прямых участках
func simplify(cells []vec.Vec2) []vec.Vec2 {
	if len(cells) < 3 {
		return cells
	}
	out := []vec.Vec2{cells[0]}
	for i := 1; i < len(cells)-1; i++ {
		prev, curr, next := cells[i-1], cells[i], cells[i+1]
		d1 := vec.Vec2{X: curr.X - prev.X, Y: curr.Y - prev.Y}
		d2 := vec.Vec2{X: next.X - curr.X, Y: next.Y - curr.Y}
		if d1 != d2 {
			out = append(out, curr)
		}
	}
	return append(out, cells[len(cells)-1])
}
