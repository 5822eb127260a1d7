package zset

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Document is an unstructured element of a Z-set: map[string]any, possibly containing nested
// maps, slices, and primitives (int64, float64, string, bool, nil). Two documents are the same
// Z-set element iff their canonical JSON encodings are equal.
type Document = map[string]any

// NewDocument allocates an empty document.
func NewDocument() Document { return make(Document) }

// computeJSONKey returns the canonical JSON encoding of doc, used as the map key identifying a
// Z-set element.
func computeJSONKey(doc Document) (string, error) {
	canonical, err := toCanonicalForm(doc)
	if err != nil {
		return "", errors.Wrap(err, "failed to canonicalize document")
	}

	bytes, err := json.Marshal(canonical)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal document")
	}

	return string(bytes), nil
}

// CanonicalKey returns the canonical JSON encoding of an arbitrary value (not necessarily a
// Document), used by callers outside this package that need the same identity rule this package
// uses internally for grouping keys and aggregate values.
func CanonicalKey(val any) (string, error) {
	return computeJSONAny(val)
}

// computeJSONAny is computeJSONKey generalized to arbitrary values, used for grouping keys and
// aggregate values that are not themselves documents.
func computeJSONAny(val any) (string, error) {
	canonical, err := toCanonicalForm(val)
	if err != nil {
		return "", errors.Wrap(err, "failed to canonicalize value")
	}
	bytes, err := json.Marshal(canonical)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal value")
	}
	return string(bytes), nil
}

// toCanonicalForm recursively normalizes val so that structurally identical values always
// marshal to the same bytes, independent of map iteration order.
func toCanonicalForm(val any) (any, error) {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, sub := range v {
			canon, err := toCanonicalForm(sub)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q", k)
			}
			result[k] = canon
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, sub := range v {
			canon, err := toCanonicalForm(sub)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			result[i] = canon
		}
		return result, nil

	default:
		// Primitives (int64, float64, string, bool, nil) and anything else are already
		// canonical, or at least as canonical as we can make them without type info.
		return v, nil
	}
}

// DeepEqual reports whether a and b encode to the same canonical form.
func DeepEqual(a, b Document) (bool, error) {
	keyA, err := computeJSONKey(a)
	if err != nil {
		return false, errors.Wrap(err, "left operand")
	}
	keyB, err := computeJSONKey(b)
	if err != nil {
		return false, errors.Wrap(err, "right operand")
	}
	return keyA == keyB, nil
}

// DeepCopyAny returns a deep copy of any value that may appear inside a Document (maps, slices,
// or primitives). It panics if val contains a type it does not know how to copy, since that
// indicates a caller fed in something other than decoded JSON or a constructed Document.
func DeepCopyAny(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, sub := range v {
			result[k] = DeepCopyAny(sub)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, sub := range v {
			result[i] = DeepCopyAny(sub)
		}
		return result

	case int64, float64, string, bool, nil, int, int32, uint, uint64:
		return v

	default:
		panic(fmt.Sprintf("zset: DeepCopyAny: unsupported value type %T", v))
	}
}

// DeepCopyDocument returns a deep copy of doc.
func DeepCopyDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return DeepCopyAny(doc).(Document)
}
