// Package gc defines the contract between the engine and an external
// tracing garbage collector.
//
// The engine never owns heap reclamation. Its sole obligation is to expose
// accurate reachability: every heap-owned structure (objects, scopes,
// closures, generator capsules, unit references held in constant pools)
// implements Traceable and enumerates the references it owns or shares.
package gc

// Traceable is implemented by every heap-owned structure in the engine.
// TraceRefs must invoke mark exactly once for each owned or shared
// Traceable reference held by the receiver. It must not mutate the
// receiver and must not retain mark beyond the call.
type Traceable interface {
	TraceRefs(mark func(Traceable))
}

// Reachable walks the reference graph from the given roots and returns
// every Traceable reachable from them, including the roots themselves.
// Cycles are handled; each structure is visited once.
//
// Collectors use this to compute the live set. It is also useful in tests
// to verify that frames, capsules and units report their references.
func Reachable(roots ...Traceable) []Traceable {
	seen := make(map[Traceable]bool)
	var order []Traceable
	var visit func(t Traceable)
	visit = func(t Traceable) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		order = append(order, t)
		t.TraceRefs(visit)
	}
	for _, root := range roots {
		visit(root)
	}
	return order
}
