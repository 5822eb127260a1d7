package zset

import (
	"fmt"

	"github.com/pkg/errors"
)

// ZSet is a finite multiset of documents with integer multiplicities ("weights"). It is the
// core value type flowing along every stream edge in a circuit: a full table is the Z-set of its
// rows each with weight 1, and a change batch is the Z-set of inserted rows (weight +1) and
// deleted rows (weight -1).
//
// A weight of zero is never stored: Z-set equality is exactly map equality of the non-zero
// entries, which is what makes the zero element (the empty Z-set) and Add/Subtract form an
// abelian group.
type ZSet struct {
	docs   map[string]Document // canonical JSON key -> representative document
	counts map[string]int      // canonical JSON key -> weight
}

// Error is returned by ZSet operations that fail to canonicalize or marshal a document.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(message string, cause error) error {
	return &Error{Message: message, Cause: cause}
}

// New returns the zero (empty) Z-set.
func New() *ZSet {
	return &ZSet{
		docs:   make(map[string]Document),
		counts: make(map[string]int),
	}
}

// Singleton returns the Z-set containing doc once with weight 1.
func Singleton(doc Document) (*ZSet, error) {
	return New().Add1(doc, 1)
}

// FromSlice builds a Z-set from a slice of documents, each contributing weight 1 (documents that
// compare equal accumulate into a single entry with the corresponding multiplicity).
func FromSlice(docs []Document) (*ZSet, error) {
	z := New()
	for i, doc := range docs {
		if err := z.AddMutate(doc, 1); err != nil {
			return nil, errors.Wrapf(err, "document at index %d", i)
		}
	}
	return z, nil
}

// Add1 returns a new Z-set equal to z with doc's weight increased by weight.
func (z *ZSet) Add1(doc Document, weight int) (*ZSet, error) {
	result := z.ShallowCopy()
	if err := result.AddMutate(doc, weight); err != nil {
		return nil, err
	}
	return result, nil
}

// AddMutate increases doc's weight by delta in place. Entries whose weight becomes zero are
// removed so the zero element never carries dead keys.
func (z *ZSet) AddMutate(doc Document, delta int) error {
	if delta == 0 {
		return nil
	}

	key, err := computeJSONKey(doc)
	if err != nil {
		return newError("failed to compute document key", err)
	}

	if _, exists := z.counts[key]; exists {
		z.counts[key] += delta
	} else {
		z.docs[key] = doc
		z.counts[key] = delta
	}

	if z.counts[key] == 0 {
		delete(z.counts, key)
		delete(z.docs, key)
	}

	return nil
}

// Add returns z + other (pointwise weight addition), the Z-set group operation.
func (z *ZSet) Add(other *ZSet) (*ZSet, error) {
	if other == nil {
		return z.DeepCopy(), nil
	}

	result := z.DeepCopy()
	for key, weight := range other.counts {
		if err := result.AddMutate(other.docs[key], weight); err != nil {
			return nil, newError("Add", err)
		}
	}
	return result, nil
}

// Subtract returns z - other.
func (z *ZSet) Subtract(other *ZSet) (*ZSet, error) {
	if other == nil {
		return z.DeepCopy(), nil
	}

	result := z.DeepCopy()
	for key, weight := range other.counts {
		if err := result.AddMutate(other.docs[key], -weight); err != nil {
			return nil, newError("Subtract", err)
		}
	}
	return result, nil
}

// Negate returns -z.
func (z *ZSet) Negate() (*ZSet, error) {
	return New().Subtract(z)
}

// Scale returns z with every weight multiplied by n. Scale(0) is the zero Z-set for any z, and
// Scale(1) is z unchanged; entries whose scaled weight is zero are dropped, matching AddMutate's
// no-zero-entries rule.
func (z *ZSet) Scale(n int) (*ZSet, error) {
	result := New()
	if n == 0 {
		return result, nil
	}
	for key, weight := range z.counts {
		if err := result.AddMutate(z.docs[key], weight*n); err != nil {
			return nil, newError("Scale", err)
		}
	}
	return result, nil
}

// Distinct returns the set projection of z: every document with positive weight appears exactly
// once, documents with non-positive weight vanish. This is the core nonlinear operator; it does
// not commute with Add and must be incrementalized via D ∘ Distinct ∘ I.
func (z *ZSet) Distinct() (*ZSet, error) {
	result := New()
	for key, weight := range z.counts {
		if weight > 0 {
			if err := result.AddMutate(z.docs[key], 1); err != nil {
				return nil, newError("Distinct", err)
			}
		}
	}
	return result, nil
}

// Unique returns z with every weight clamped to its sign (+1, -1, or absent). Unlike Distinct it
// preserves pending retractions, which is useful when feeding a delta into an operator that only
// cares about presence, not multiplicity.
func (z *ZSet) Unique() (*ZSet, error) {
	result := New()
	for key, weight := range z.counts {
		sign := 1
		if weight < 0 {
			sign = -1
		}
		if err := result.AddMutate(z.docs[key], sign); err != nil {
			return nil, newError("Unique", err)
		}
	}
	return result, nil
}

// ShallowCopy copies the index structures but not the documents themselves.
func (z *ZSet) ShallowCopy() *ZSet {
	result := &ZSet{
		docs:   make(map[string]Document, len(z.docs)),
		counts: make(map[string]int, len(z.counts)),
	}
	for key, doc := range z.docs {
		result.docs[key] = doc
	}
	for key, weight := range z.counts {
		result.counts[key] = weight
	}
	return result
}

// DeepCopy copies the Z-set and every document it holds.
func (z *ZSet) DeepCopy() *ZSet {
	result := &ZSet{
		docs:   make(map[string]Document, len(z.docs)),
		counts: make(map[string]int, len(z.counts)),
	}
	for key, doc := range z.docs {
		result.docs[key] = DeepCopyDocument(doc)
		result.counts[key] = z.counts[key]
	}
	return result
}

// Entry pairs a document with its weight.
type Entry struct {
	Document Document
	Weight   int
}

// Entries returns every document in z along with its weight, including negative weights.
func (z *ZSet) Entries() []Entry {
	result := make([]Entry, 0, len(z.counts))
	for key, weight := range z.counts {
		result = append(result, Entry{Document: DeepCopyDocument(z.docs[key]), Weight: weight})
	}
	return result
}

// Documents returns the positively-weighted documents, repeating each one Weight times.
func (z *ZSet) Documents() []Document {
	var result []Document
	for key, weight := range z.counts {
		if weight <= 0 {
			continue
		}
		doc := z.docs[key]
		for i := 0; i < weight; i++ {
			result = append(result, DeepCopyDocument(doc))
		}
	}
	return result
}

// UniqueDocuments returns every positively-weighted document exactly once.
func (z *ZSet) UniqueDocuments() []Document {
	var result []Document
	for key, weight := range z.counts {
		if weight > 0 {
			result = append(result, DeepCopyDocument(z.docs[key]))
		}
	}
	return result
}

// IsZero reports whether z is the zero (empty) Z-set.
func (z *ZSet) IsZero() bool { return len(z.counts) == 0 }

// Size is the number of documents counting only positive weights.
func (z *ZSet) Size() int {
	total := 0
	for _, weight := range z.counts {
		if weight > 0 {
			total += weight
		}
	}
	return total
}

// TotalSize is the number of documents counting the absolute value of every weight.
func (z *ZSet) TotalSize() int {
	total := 0
	for _, weight := range z.counts {
		if weight >= 0 {
			total += weight
		} else {
			total -= weight
		}
	}
	return total
}

// UniqueCount is the number of distinct positively-weighted documents.
func (z *ZSet) UniqueCount() int {
	n := 0
	for _, weight := range z.counts {
		if weight > 0 {
			n++
		}
	}
	return n
}

// Weight returns doc's current multiplicity in z, or 0 if absent.
func (z *ZSet) Weight(doc Document) (int, error) {
	key, err := computeJSONKey(doc)
	if err != nil {
		return 0, newError("failed to compute document key", err)
	}
	return z.counts[key], nil
}

// Contains reports whether doc is present in z with positive weight.
func (z *ZSet) Contains(doc Document) (bool, error) {
	w, err := z.Weight(doc)
	if err != nil {
		return false, err
	}
	return w > 0, nil
}

// ForEach iterates over every document and its weight in unspecified order, stopping and
// returning the first error fn produces.
func (z *ZSet) ForEach(fn func(doc Document, weight int) error) error {
	for key, weight := range z.counts {
		if err := fn(z.docs[key], weight); err != nil {
			return err
		}
	}
	return nil
}

// String renders z for debugging; it is not a stable serialization.
func (z *ZSet) String() string {
	if z.IsZero() {
		return "∅"
	}
	result := "{"
	first := true
	for key, weight := range z.counts {
		if !first {
			result += ", "
		}
		result += fmt.Sprintf("%v×%d", z.docs[key], weight)
		first = false
	}
	return result + "}"
}
