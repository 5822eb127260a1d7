// Package zset implements Z-set algebra: finite multisets with integer (signed) multiplicities,
// the core data structure of incremental view maintenance. A Z-set maps elements to weights in Z;
// positive weight means "present n times", negative weight means "n pending retractions", and
// weight zero means "absent" (and is never stored explicitly).
//
// Elements are opaque documents (map[string]any) identified by their canonical JSON encoding, the
// same identity rule used throughout the rest of this module. IndexedZSet groups a Z-set by a
// derived key, the structure used by joins and aggregations to avoid re-scanning unrelated groups
// on every update.
package zset
