// Package dbsp implements the DBSP operator algebra for incremental computation on Z-sets: the
// theoretical foundation described in https://mihaibudiu.github.io/work/dbsp-spec.pdf.
//
// Every operator here processes one delta Z-set per invocation and produces one delta Z-set,
// classified by how it relates to the stream algebra's addition:
//
//   - Linear operators (projection, selection, unwind, delay, integrate, differentiate) commute
//     with addition, so applying them to a delta is already the incremental version of applying
//     them to a snapshot: Op^Δ = Op.
//   - Bilinear operators (joins) distribute over addition in each argument separately but not
//     jointly, so their incremental form expands into a sum of cross terms against the other
//     side's running snapshot.
//   - Nonlinear operators (distinct, gather/aggregate) have no such shortcut and are lifted with
//     the general formula F^Δ = D ∘ F ∘ I: integrate the delta into a snapshot, apply the
//     snapshot operator, then differentiate back into a delta.
//
// The circuit package wires these operators into a dataflow graph and drives them one tick at a
// time; this package only implements what happens inside a single node on a single tick.
package dbsp

// SortGatherValues controls whether GatherOp and its incremental counterpart sort the value list
// passed to the aggregator before folding it. Sorting makes array-typed aggregate results (list
// concatenation, for instance) stable across runs that differ only in processing order, at the
// cost of an extra O(n log n) pass per group per tick.
var SortGatherValues = true
