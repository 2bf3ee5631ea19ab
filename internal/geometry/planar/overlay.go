package planar

import (
	"math"
	"sort"
)

type opFunc func(inA, inB bool) bool

var (
	opUnion        opFunc = func(a, b bool) bool { return a || b }
	opIntersection opFunc = func(a, b bool) bool { return a && b }
	opDifference   opFunc = func(a, b bool) bool { return a && !b }
)

type segment struct {
	a, b   point
	set    int
	splits []point

	minX, maxX, minY, maxY float64
}

func newSegment(a, b point, set int) *segment {
	return &segment{
		a: a, b: b, set: set,
		minX: math.Min(a.x, b.x), maxX: math.Max(a.x, b.x),
		minY: math.Min(a.y, b.y), maxY: math.Max(a.y, b.y),
	}
}

type edge struct{ a, b point }

func (e edge) mid() point { return point{(e.a.x + e.b.x) / 2, (e.a.y + e.b.y) / 2} }

// overlay computes op over the two regions by noding their boundaries against
// each other, keeping the sub-edges that separate result from non-result, and
// chaining those into rings.
func overlay(a, b region, op opFunc) []region {
	var segs []*segment
	for set, g := range [2]region{a, b} {
		for _, r := range g {
			for i := range r {
				segs = append(segs, newSegment(r[i], r[(i+1)%len(r)], set))
			}
		}
	}
	node(segs)

	var parts [2][]edge
	for _, s := range segs {
		parts[s.set] = append(parts[s.set], split(s)...)
	}

	var keys [2]map[edge]bool
	for set := range parts {
		keys[set] = make(map[edge]bool, len(parts[set]))
		for _, e := range parts[set] {
			keys[set][e] = true
		}
	}

	regions := [2]region{a, b}
	seen := make(map[edge]bool)
	var kept []edge
	for set := range parts {
		other := 1 - set
		for _, e := range parts[set] {
			ownL, ownR := true, false
			var otherL, otherR bool
			switch {
			case keys[other][e]:
				otherL, otherR = true, false
			case keys[other][edge{e.b, e.a}]:
				otherL, otherR = false, true
			default:
				in := regions[other].locate(e.mid()) == inside
				otherL, otherR = in, in
			}

			var left, right bool
			if set == 0 {
				left, right = op(ownL, otherL), op(ownR, otherR)
			} else {
				left, right = op(otherL, ownL), op(otherR, ownR)
			}

			var out edge
			switch {
			case left && !right:
				out = e
			case !left && right:
				out = edge{e.b, e.a}
			default:
				continue
			}
			if seen[out] {
				continue
			}
			seen[out] = true
			kept = append(kept, out)
		}
	}

	return assemble(kept)
}

// node records, on every segment, the points where other segments cross or
// touch it. Segments are swept by their x extent.
func node(segs []*segment) {
	order := make([]*segment, len(segs))
	copy(order, segs)
	sort.SliceStable(order, func(i, j int) bool { return order[i].minX < order[j].minX })

	for i, s := range order {
		for _, t := range order[i+1:] {
			if t.minX > s.maxX+tolerance {
				break
			}
			if t.minY > s.maxY+tolerance || t.maxY < s.minY-tolerance {
				continue
			}
			intersect(s, t)
		}
	}
}

func intersect(s, t *segment) {
	touched := false
	for _, p := range [2]point{t.a, t.b} {
		if interior(s, p) {
			s.splits = append(s.splits, p)
			touched = true
		}
	}
	for _, p := range [2]point{s.a, s.b} {
		if interior(t, p) {
			t.splits = append(t.splits, p)
			touched = true
		}
	}
	if touched {
		return
	}

	d1, d2 := orient(t.a, t.b, s.a), orient(t.a, t.b, s.b)
	d3, d4 := orient(s.a, s.b, t.a), orient(s.a, s.b, t.b)
	if d1*d2 >= 0 || d3*d4 >= 0 {
		return
	}
	r := s.b.sub(s.a)
	u := cross(t.a.sub(s.a), t.b.sub(t.a)) / cross(r, t.b.sub(t.a))
	p := snapPoint(s.a.x+u*r.x, s.a.y+u*r.y)
	for _, q := range [4]point{s.a, s.b, t.a, t.b} {
		if p.dist(q) <= tolerance {
			p = q
			break
		}
	}
	if p != s.a && p != s.b {
		s.splits = append(s.splits, p)
	}
	if p != t.a && p != t.b {
		t.splits = append(t.splits, p)
	}
}

// interior reports whether p lies on s away from its endpoints.
func interior(s *segment, p point) bool {
	if p.dist(s.a) <= tolerance || p.dist(s.b) <= tolerance {
		return false
	}
	if p.x < s.minX-tolerance || p.x > s.maxX+tolerance || p.y < s.minY-tolerance || p.y > s.maxY+tolerance {
		return false
	}
	return onSegment(s.a, s.b, p)
}

func split(s *segment) []edge {
	if len(s.splits) == 0 {
		return []edge{{s.a, s.b}}
	}
	d := s.b.sub(s.a)
	param := func(p point) float64 { return (p.x-s.a.x)*d.x + (p.y-s.a.y)*d.y }
	pts := append([]point(nil), s.splits...)
	sort.SliceStable(pts, func(i, j int) bool { return param(pts[i]) < param(pts[j]) })

	out := make([]edge, 0, len(pts)+1)
	prev := s.a
	for _, p := range append(pts, s.b) {
		if p == prev {
			continue
		}
		out = append(out, edge{prev, p})
		prev = p
	}
	return out
}

// assemble chains directed edges into rings, always taking the left-most turn
// so that rings touching at a vertex come out separately. Counter-clockwise
// rings become shells; clockwise rings are holes placed in the smallest shell
// that contains them.
func assemble(edges []edge) []region {
	outgoing := make(map[point][]int, len(edges))
	for i, e := range edges {
		outgoing[e.a] = append(outgoing[e.a], i)
	}
	used := make([]bool, len(edges))

	var shells, holes []ring
	for start := range edges {
		if used[start] {
			continue
		}
		origin := edges[start].a
		var r ring
		cur := start
		closed := false
		for {
			used[cur] = true
			e := edges[cur]
			r = append(r, e.a)
			if e.b == origin {
				closed = true
				break
			}
			next := nextEdge(edges, outgoing[e.b], used, e)
			if next < 0 {
				break
			}
			cur = next
		}
		if !closed || len(r) < 3 {
			continue
		}
		area := r.signedArea()
		switch {
		case math.Abs(area) < minRingArea:
		case area > 0:
			shells = append(shells, r)
		default:
			holes = append(holes, r)
		}
	}

	polys := make([]region, len(shells))
	for i, s := range shells {
		polys[i] = region{s}
	}
	for _, h := range holes {
		pt := edge{h[0], h[1]}.mid()
		best, bestArea := -1, math.Inf(1)
		for i, s := range shells {
			if !s.contains(pt) {
				continue
			}
			if a := s.signedArea(); a < bestArea {
				best, bestArea = i, a
			}
		}
		if best >= 0 {
			polys[best] = append(polys[best], h)
		}
	}
	return polys
}

func nextEdge(edges []edge, candidates []int, used []bool, in edge) int {
	back := math.Atan2(in.a.y-in.b.y, in.a.x-in.b.x)
	best, bestTurn := -1, math.Inf(1)
	for _, c := range candidates {
		if used[c] {
			continue
		}
		e := edges[c]
		turn := back - math.Atan2(e.b.y-e.a.y, e.b.x-e.a.x)
		for turn <= 0 {
			turn += 2 * math.Pi
		}
		for turn > 2*math.Pi {
			turn -= 2 * math.Pi
		}
		if turn < bestTurn {
			best, bestTurn = c, turn
		}
	}
	return best
}
