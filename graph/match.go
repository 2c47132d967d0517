package graph

import (
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
)

// Match is a successful, legal binding of a rule's pattern at an anchor. It
// carries everything Apply needs to perform the rewrite without re-running
// unification. A Match is tied to the graph state it was computed on; any
// mutation of the graph invalidates it.
type Match struct {
	Xfer   *Xfer
	Anchor OpID

	g     *Graph
	nodes []OpID // bound graph node per pattern gate
	extQ  []wire // per pattern qubit line: the boundary wire entering the region
	extP  []wire // per pattern input parameter: the boundary wire
	set   *bitset.BitSet
}

// Ops returns the bound graph nodes in pattern gate order.
func (m *Match) Ops() []OpID { return slices.Clone(m.nodes) }

// IsApplicable reports whether the rule's pattern binds at anchor and the
// bound node set is legally substitutable. It is a pure decision function:
// the graph is never touched. "No match" is an ordinary false, never an
// error.
func (g *Graph) IsApplicable(x *Xfer, anchor OpID) bool {
	m, ok := g.bind(x, anchor)
	return ok && g.legal(m)
}

// Match runs the same test as IsApplicable and returns the binding on
// success.
func (g *Graph) Match(x *Xfer, anchor OpID) (*Match, bool) {
	m, ok := g.bind(x, anchor)
	if !ok || !g.legal(m) {
		return nil, false
	}
	return m, true
}

// CountMatches returns the number of (op, xfer) pairs for which the rule
// applies at the node. The count is invariant under permutation of either
// list. Pure query; rule selection belongs to the search driver.
func CountMatches(g *Graph, ops []OpID, xfers []*Xfer) int {
	cnt := 0
	for _, op := range ops {
		for _, x := range xfers {
			if g.IsApplicable(x, op) {
				cnt++
			}
		}
	}
	return cnt
}

// CountMatchesParallel computes CountMatches sharded over workers
// goroutines. Matching is read-only, so no synchronization beyond the final
// sum is needed; the caller must not mutate the graph concurrently.
func CountMatchesParallel(g *Graph, ops []OpID, xfers []*Xfer, workers int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(ops) {
		workers = len(ops)
	}
	if workers <= 1 {
		return CountMatches(g, ops, xfers)
	}

	var total atomic.Int64
	var eg errgroup.Group
	chunk := (len(ops) + workers - 1) / workers
	for start := 0; start < len(ops); start += chunk {
		end := min(start+chunk, len(ops))
		sub := ops[start:end]
		eg.Go(func() error {
			total.Add(int64(CountMatches(g, sub, xfers)))
			return nil
		})
	}
	_ = eg.Wait() // workers never fail
	return int(total.Load())
}

// Matches enumerates every applicable (op, xfer) pair with its binding, in
// (ops, xfers) order.
func Matches(g *Graph, ops []OpID, xfers []*Xfer) []*Match {
	var out []*Match
	for _, op := range ops {
		for _, x := range xfers {
			if m, ok := g.Match(x, op); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// bind attempts the structural unification of x's pattern rooted at anchor:
// the anchor binds the pattern's first gate, and each further pattern gate
// binds a distinct node of equal kind such that every pattern-internal wire
// has the corresponding graph edge and every pattern input wire maps to one
// consistent boundary wire.
func (g *Graph) bind(x *Xfer, anchor OpID) (*Match, bool) {
	if !g.live(anchor) || g.nodes[anchor].kind.IsInput() {
		return nil, false
	}

	pat := x.pattern.Gates()
	m := &Match{
		Xfer:   x,
		Anchor: anchor,
		g:      g,
		nodes:  make([]OpID, len(pat)),
		extQ:   make([]wire, x.pattern.NbQubits()),
		extP:   make([]wire, x.pattern.NbParams()),
		set:    bitset.New(uint(len(g.nodes))),
	}
	for i := range m.nodes {
		m.nodes[i] = noOp
	}
	for i := range m.extQ {
		m.extQ[i] = wire{op: noOp}
	}
	for i := range m.extP {
		m.extP[i] = wire{op: noOp}
	}

	if !g.bindGate(x, m, 0) {
		return nil, false
	}
	return m, true
}

func (g *Graph) bindGate(x *Xfer, m *Match, i int) bool {
	if i == len(m.nodes) {
		return g.checkBoundary(m)
	}
	if i == 0 {
		return g.tryBind(x, m, 0, m.Anchor)
	}

	// candidates come from the fanout of an already-bound producer when the
	// pattern gate consumes an internal wire; a pattern gate with only
	// external inputs (a fresh connected component) can bind anywhere
	for port, src := range x.srcs[i] {
		if !src.internal {
			continue
		}
		producer := m.nodes[src.gateIdx]
		for _, e := range g.nodes[producer].out {
			if e.SrcPort == src.port && e.DstPort == port && g.tryBind(x, m, i, e.Dst) {
				return true
			}
		}
		return false
	}
	for id := range g.nodes {
		if g.live(OpID(id)) && !g.nodes[id].kind.IsInput() && g.tryBind(x, m, i, OpID(id)) {
			return true
		}
	}
	return false
}

// tryBind checks cand against pattern gate i, records the binding and
// recurses; on failure every recorded piece of state is undone.
func (g *Graph) tryBind(x *Xfer, m *Match, i int, cand OpID) bool {
	if !g.live(cand) || m.set.Test(uint(cand)) {
		return false
	}
	pg := &x.pattern.Gates()[i]
	nd := &g.nodes[cand]
	if nd.kind != pg.Kind {
		return false
	}

	var recordedQ, recordedP []int
	undo := func() {
		for _, q := range recordedQ {
			m.extQ[q] = wire{op: noOp}
		}
		for _, p := range recordedP {
			m.extP[p] = wire{op: noOp}
		}
	}

	nq := pg.Kind.NumQubits()
	for port, src := range x.srcs[i] {
		e := nd.in[port]
		if src.internal {
			if m.nodes[src.gateIdx] != e.Src || e.SrcPort != src.port {
				undo()
				return false
			}
			continue
		}
		w := wire{op: e.Src, port: e.SrcPort}
		ext := m.extQ
		recorded := &recordedQ
		if port >= nq {
			ext = m.extP
			recorded = &recordedP
		}
		if ext[src.input].op == noOp {
			ext[src.input] = w
			*recorded = append(*recorded, src.input)
		} else if ext[src.input] != w {
			undo()
			return false
		}
	}

	m.nodes[i] = cand
	m.set.Set(uint(cand))
	if g.bindGate(x, m, i+1) {
		return true
	}
	m.nodes[i] = noOp
	m.set.Clear(uint(cand))
	undo()
	return false
}

// checkBoundary validates the completed binding's boundary wires: every
// pattern input wire must come from outside the matched set, and two
// distinct pattern qubit lines may not enter on the same graph wire.
func (g *Graph) checkBoundary(m *Match) bool {
	for i, w := range m.extQ {
		if w.op == noOp || m.set.Test(uint(w.op)) {
			return false
		}
		for _, prev := range m.extQ[:i] {
			if prev == w {
				return false
			}
		}
	}
	for _, w := range m.extP {
		if w.op != noOp && m.set.Test(uint(w.op)) {
			return false
		}
	}
	return true
}

// legal decides whether the bound set can be excised: it must be convex,
// and no parameter wire derived inside the set may feed a consumer outside
// it (such a wire has no counterpart in the replacement).
func (g *Graph) legal(m *Match) bool {
	for _, id := range m.nodes {
		nd := &g.nodes[id]
		if !nd.kind.IsParamGate() {
			continue
		}
		outPort := nd.kind.NumQubits()
		for _, e := range nd.out {
			if e.SrcPort == outPort && !m.set.Test(uint(e.Dst)) {
				return false
			}
		}
	}
	return g.convex(m.set)
}

// convex reports whether no directed path leaves set and re-enters it.
// Convexity is exactly the condition under which excising the set and
// splicing in a replacement preserves the DAG invariant.
func (g *Graph) convex(set *bitset.BitSet) bool {
	visited := bitset.New(uint(len(g.nodes)))
	var stack []OpID
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		for _, e := range g.nodes[i].out {
			if !set.Test(uint(e.Dst)) {
				stack = append(stack, e.Dst)
			}
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Test(uint(v)) {
			continue
		}
		visited.Set(uint(v))
		for _, e := range g.nodes[v].out {
			if set.Test(uint(e.Dst)) {
				return false
			}
			if !visited.Test(uint(e.Dst)) {
				stack = append(stack, e.Dst)
			}
		}
	}
	return true
}
