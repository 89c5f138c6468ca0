package engine

import (
	"sort"

	"github.com/gravelbuild/gravel/pkg/graph"
)

// Stats summarizes one Evaluate call.
type Stats struct {
	// Computed is the number of nodes that published a value.
	Computed int

	// Failed is the number of nodes that published a terminal error.
	Failed int

	// Restarts is the number of attempts suspended on unready
	// dependencies.
	Restarts int

	// CacheHits is the number of requests served from the memo table.
	CacheHits int

	// DepRequests is the number of dependency requests made by node
	// functions.
	DepRequests int
}

// EvaluationResult is the outcome of one Evaluate call: the union of
// published values and terminal errors for every key the call touched.
type EvaluationResult struct {
	roots   []graph.Key
	results map[graph.Key]graph.Result

	// Stats summarizes the work performed by the call.
	Stats Stats
}

// Get returns the published value or terminal error for a key. The
// boolean reports whether the key has an outcome at all.
func (r *EvaluationResult) Get(key graph.Key) (graph.Value, error, bool) {
	res, ok := r.results[key]
	if !ok {
		return nil, nil, false
	}
	return res.Value, res.Err, true
}

// Value returns the published value for a key, or nil if the key
// failed or has no outcome.
func (r *EvaluationResult) Value(key graph.Key) graph.Value {
	res := r.results[key]
	return res.Value
}

// Err returns the terminal error for a key, or nil.
func (r *EvaluationResult) Err(key graph.Key) error {
	res := r.results[key]
	return res.Err
}

// Roots returns the root keys the call was asked to evaluate.
func (r *EvaluationResult) Roots() []graph.Key {
	return r.roots
}

// Keys returns every key with an outcome, sorted by key text for
// deterministic iteration.
func (r *EvaluationResult) Keys() []graph.Key {
	keys := make([]graph.Key, 0, len(r.results))
	for key := range r.results {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of keys with an outcome.
func (r *EvaluationResult) Len() int {
	return len(r.results)
}

// HasErrors reports whether any touched key failed terminally.
func (r *EvaluationResult) HasErrors() bool {
	for _, res := range r.results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// RootErrors returns the terminal errors of the root keys, sorted by
// key text.
func (r *EvaluationResult) RootErrors() []error {
	roots := make([]graph.Key, len(r.roots))
	copy(roots, r.roots)
	sort.Slice(roots, func(i, j int) bool {
		return roots[i].String() < roots[j].String()
	})
	var errs []error
	for _, key := range roots {
		if err := r.results[key].Err; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
