package world

import "container/heap"

// CostFunc returns the cost of entering h, or false when h cannot be entered.
// Costs below 1 are treated as 1 so the distance heuristic stays admissible.
type CostFunc func(h *Hex) (int, bool)

// Route is the result of a path search. Hexes excludes the start hex.
type Route struct {
	Hexes []*Hex
	Cost  int
}

type pathNode struct {
	hex    *Hex
	g      int
	f      int
	seq    int // insertion order, breaks f ties deterministically
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath runs A* from one hex to another. The start hex is never charged.
// It returns false when either endpoint is not on the grid or no route exists.
func (g *Grid) FindPath(from, to *Hex, cost CostFunc) (Route, bool) {
	if !g.Contains(from) || !g.Contains(to) {
		return Route{}, false
	}
	if from == to {
		return Route{}, true
	}

	open := &pathQueue{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &pathNode{hex: from, f: g.Distance(from, to), seq: seq})
	gScore := map[*Hex]int{from: 0}
	closed := make(map[*Hex]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.hex]; seen {
			continue
		}
		closed[current.hex] = struct{}{}
		if current.hex == to {
			return Route{Hexes: reconstructPath(current), Cost: current.g}, true
		}

		for _, next := range g.Neighbors(current.hex) {
			if _, seen := closed[next]; seen {
				continue
			}
			step, ok := cost(next)
			if !ok {
				continue
			}
			if step < 1 {
				step = 1
			}
			tentativeG := current.g + step
			if prev, ok := gScore[next]; ok && tentativeG >= prev {
				continue
			}
			gScore[next] = tentativeG
			seq++
			heap.Push(open, &pathNode{
				hex:    next,
				g:      tentativeG,
				f:      tentativeG + g.Distance(next, to),
				seq:    seq,
				parent: current,
			})
		}
	}
	return Route{}, false
}

// reconstructPath walks parents back to the start, dropping the start itself.
func reconstructPath(end *pathNode) []*Hex {
	var path []*Hex
	for node := end; node != nil && node.parent != nil; node = node.parent {
		path = append(path, node.hex)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
