package main

import (
	"math/rand"

	"graviton/internal/decimal"
	"graviton/internal/objspace"
)

// mutatorGraph is a throwaway object graph a command-line invocation
// allocates into, standing in for the interpreter's root set and
// heap-traced objects. Every node carries a decimal.Decimal payload so
// marking and compaction exercise a non-trivial storage shape instead
// of a bare Ref.
//
// The graph's edges live in a side table keyed by a node id, not in
// slot memory, so there is nothing for UpdateReferences to rewrite
// in-place; instead refToNode is re-keyed through ObjectSpace.Location
// once compaction finishes (see afterCompaction).
type mutatorGraph struct {
	nextNode int
	roots    []int
	children map[int][]int
	payload  map[int]decimal.Decimal

	refToNode map[objspace.Ref]int
	nodeRef   map[int]objspace.Ref
}

func newMutatorGraph() *mutatorGraph {
	return &mutatorGraph{
		children:  make(map[int][]int),
		payload:   make(map[int]decimal.Decimal),
		refToNode: make(map[objspace.Ref]int),
		nodeRef:   make(map[int]objspace.Ref),
	}
}

// EnumerateRoots implements objspace.RootSource.
func (g *mutatorGraph) EnumerateRoots(visit func(objspace.Ref)) {
	for _, n := range g.roots {
		visit(g.nodeRef[n])
	}
}

func (g *mutatorGraph) markChildren(self objspace.Ref, mark func(objspace.Ref)) {
	n, ok := g.refToNode[self]
	if !ok {
		return
	}
	for _, c := range g.children[n] {
		mark(g.nodeRef[c])
	}
}

func (g *mutatorGraph) hooks() objspace.Hooks {
	return objspace.Hooks{
		Roots: g,
		MarkChildren: func(os *objspace.ObjectSpace, r objspace.Ref, visit func(objspace.Ref)) {
			g.markChildren(r, visit)
		},
		UpdateReferences: func(*objspace.ObjectSpace, objspace.Ref) {},
		FinalizeObject:   func(objspace.Ref) {},
	}
}

// afterCompaction re-keys refToNode/nodeRef through Location, the
// bookkeeping a real embedder would fold into its own marking/update
// pass if its pointers lived in slot storage rather than a side table.
func (g *mutatorGraph) afterCompaction(os *objspace.ObjectSpace) {
	refToNode := make(map[objspace.Ref]int, len(g.refToNode))
	nodeRef := make(map[int]objspace.Ref, len(g.nodeRef))
	for old, n := range g.refToNode {
		cur := os.Location(old)
		refToNode[cur] = n
		nodeRef[n] = cur
	}
	g.refToNode = refToNode
	g.nodeRef = nodeRef
}

// allocDecimal allocates one decimal-valued node, linking it under
// parent if given, and returns its node id.
func (g *mutatorGraph) allocDecimal(os *objspace.ObjectSpace, cache *objspace.RactorCache, parent int, hasParent bool, wbProtected bool, rng *rand.Rand) int {
	typ := &objspace.Type{Name: "decimal.Decimal", Size: 24}
	ref := os.NewObj(cache, typ, 0, 0, 0, wbProtected, 24)

	n := g.nextNode
	g.nextNode++
	g.payload[n] = decimal.New(rng.Int63n(1_000_000), rng.Intn(4))
	g.refToNode[ref] = n
	g.nodeRef[n] = ref

	if hasParent {
		g.children[parent] = append(g.children[parent], n)
	} else {
		g.roots = append(g.roots, n)
	}
	return n
}

// dropRandomRoots discards a random subset of roots, simulating the
// mutator losing interest in objects between GC cycles.
func (g *mutatorGraph) dropRandomRoots(count int, rng *rand.Rand) {
	for i := 0; i < count && len(g.roots) > 0; i++ {
		idx := rng.Intn(len(g.roots))
		g.roots[idx] = g.roots[len(g.roots)-1]
		g.roots = g.roots[:len(g.roots)-1]
	}
}

func (g *mutatorGraph) liveRootCount() int { return len(g.roots) }
