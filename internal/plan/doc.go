// Package plan compiles an immutable queryspec.Spec into a concrete query
// plan: the join list with stable aliases, the parameterized filter text,
// the projection plan, and the ordering/paging clauses.
//
// A Context is the disposable compilation state for exactly one execution.
// It owns the alias registry, so predicates, explicit inclusions, and
// selections can all reference the same relation path and converge on one
// alias and one join regardless of call order. Contexts are never shared or
// reused; every terminal operation builds a fresh one.
package plan
