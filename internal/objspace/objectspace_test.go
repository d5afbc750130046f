package objspace

import (
	"graviton/internal/gcconfig"
	"graviton/internal/gclog"
)

// testGraph is a minimal host object graph: an explicit adjacency map
// used to drive the MarkChildren/UpdateReferences hooks without a real
// host VM, the same way a unit test for a tracing collector would stub
// out "the interpreter" with a tiny fake graph.
type testGraph struct {
	children map[Ref][]Ref
	roots    []Ref
}

func newTestGraph() *testGraph {
	return &testGraph{children: make(map[Ref][]Ref)}
}

func (g *testGraph) EnumerateRoots(visit func(Ref)) {
	for _, r := range g.roots {
		visit(r)
	}
}

func (g *testGraph) link(parent, child Ref) {
	g.children[parent] = append(g.children[parent], child)
}

func testHooks(g *testGraph) Hooks {
	return Hooks{
		Roots: g,
		MarkChildren: func(os *ObjectSpace, r Ref, visit func(Ref)) {
			for _, c := range g.children[r] {
				visit(c)
			}
		},
		UpdateReferences: func(os *ObjectSpace, r Ref) {
			cs := g.children[r]
			for i, c := range cs {
				cs[i] = os.Location(c)
			}
		},
		FinalizeObject: func(Ref) {},
	}
}

// newTestSpace builds an ObjectSpace with small per-class page sizes so
// tests can force heap growth and sweeping without allocating thousands
// of objects.
func newTestSpace(g *testGraph) *ObjectSpace {
	cfg := gcconfig.Default()
	cfg.HeapInitSlots = [NumSizeClasses]int{8, 8, 8, 8, 8}
	return New(cfg, gclog.Nop(), testHooks(g))
}

func allocOne(os *ObjectSpace, cache *RactorCache, wbProtected bool) Ref {
	return os.NewObj(cache, &Type{Name: "obj", Size: 8}, 0, 0, 0, wbProtected, 8)
}
