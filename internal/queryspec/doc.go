// Package queryspec defines the immutable query specification: tagged
// predicate trees, inclusion trees, selection trees, ordering, and paging.
//
// Specs are plain values. Building one never touches alias or join state;
// compilation into a concrete plan happens later, inside a fresh plan
// context owned by the terminal operation. This is what makes a Spec safe
// to share, fork, and reuse across goroutines.
//
// The parser is the only place that distinguishes a field reference from a
// relation reference. It does so against the entity's static relation
// metadata, producing an explicit FieldCondition or RelationCondition node,
// so later stages never sniff value shapes at runtime.
package queryspec
