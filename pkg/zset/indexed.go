package zset

import "github.com/pkg/errors"

// KeyFunc extracts the index key for a document. Two documents with equal canonical-JSON keys
// fall into the same group.
type KeyFunc func(Document) (any, error)

// IndexedZSet is a Z-set grouped by a derived key: a finite map from K to Z[V]. It backs joins
// (group both sides by join key, match group-wise) and grouped aggregation (group by the
// aggregation key, fold each group).
type IndexedZSet struct {
	keys   map[string]any  // canonical JSON key -> original key value
	groups map[string]*ZSet // canonical JSON key -> Z-set of documents sharing that key
}

// NewIndexed returns an empty IndexedZSet.
func NewIndexed() *IndexedZSet {
	return &IndexedZSet{
		keys:   make(map[string]any),
		groups: make(map[string]*ZSet),
	}
}

// Index groups z by applying keyFn to every document. Documents for which keyFn returns a nil
// key are dropped, mirroring how the linear operators skip documents missing a required field.
func Index(z *ZSet, keyFn KeyFunc) (*IndexedZSet, error) {
	result := NewIndexed()
	for key, weight := range z.counts {
		doc := z.docs[key]
		k, err := keyFn(doc)
		if err != nil {
			return nil, errors.Wrap(err, "index key extraction failed")
		}
		if k == nil {
			continue
		}
		if err := result.addMutate(k, doc, weight); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (ix *IndexedZSet) addMutate(key any, doc Document, weight int) error {
	mapKey, err := computeJSONAny(key)
	if err != nil {
		return errors.Wrap(err, "failed to compute index key")
	}
	if _, ok := ix.groups[mapKey]; !ok {
		ix.groups[mapKey] = New()
		ix.keys[mapKey] = key
	}
	if err := ix.groups[mapKey].AddMutate(doc, weight); err != nil {
		return err
	}
	ix.dropIfEmpty(mapKey)
	return nil
}

// dropIfEmpty removes mapKey's group once its inner Z-set has consolidated to zero, preserving
// the invariant that the outer map never carries a key whose inner Z-set is empty.
func (ix *IndexedZSet) dropIfEmpty(mapKey string) {
	if g, ok := ix.groups[mapKey]; ok && g.IsZero() {
		delete(ix.groups, mapKey)
		delete(ix.keys, mapKey)
	}
}

// Get returns the Z-set of documents filed under key, or the zero Z-set if key is unseen.
func (ix *IndexedZSet) Get(key any) (*ZSet, error) {
	mapKey, err := computeJSONAny(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute index key")
	}
	if g, ok := ix.groups[mapKey]; ok {
		return g, nil
	}
	return New(), nil
}

// Keys returns every distinct key currently present in the index.
func (ix *IndexedZSet) Keys() []any {
	result := make([]any, 0, len(ix.keys))
	for _, k := range ix.keys {
		result = append(result, k)
	}
	return result
}

// ForEachGroup iterates over every (key, group) pair in unspecified order.
func (ix *IndexedZSet) ForEachGroup(fn func(key any, group *ZSet) error) error {
	for mapKey, group := range ix.groups {
		if err := fn(ix.keys[mapKey], group); err != nil {
			return err
		}
	}
	return nil
}

// Add merges other into a deep copy of ix, group-wise. A group whose merge cancels to the zero
// Z-set (e.g. g merged with −g) is dropped from the result rather than kept as an empty entry.
func (ix *IndexedZSet) Add(other *IndexedZSet) (*IndexedZSet, error) {
	result := ix.deepCopy()
	if other == nil {
		return result, nil
	}
	for mapKey, group := range other.groups {
		if _, ok := result.groups[mapKey]; !ok {
			result.groups[mapKey] = New()
			result.keys[mapKey] = other.keys[mapKey]
		}
		merged, err := result.groups[mapKey].Add(group)
		if err != nil {
			return nil, errors.Wrap(err, "failed to merge index group")
		}
		result.groups[mapKey] = merged
		result.dropIfEmpty(mapKey)
	}
	return result, nil
}

// Flatten collapses the index back into a plain Z-set, the inverse of Index (modulo lost key
// information for documents that shared a key by coincidence).
func (ix *IndexedZSet) Flatten() (*ZSet, error) {
	result := New()
	for _, group := range ix.groups {
		merged, err := result.Add(group)
		if err != nil {
			return nil, err
		}
		result = merged
	}
	return result, nil
}

func (ix *IndexedZSet) deepCopy() *IndexedZSet {
	result := NewIndexed()
	for mapKey, key := range ix.keys {
		result.keys[mapKey] = key
	}
	for mapKey, group := range ix.groups {
		result.groups[mapKey] = group.DeepCopy()
	}
	return result
}
