// Package changemgr implements the change manager sitting in front of a circuit's source
// streams: callers hand it raw insert/delete batches, it validates them against its own
// integrated copy of what has already been committed, accumulates them into a pending delta, and
// on commit returns the accumulated delta for the caller to feed into the circuit's source stream.
// It does not call Circuit.Tick itself.
package changemgr

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/circuit"
	"go.l7mp.io/dbsp/pkg/zset"
)

// Manager accumulates changes for a single source stream between commits.
type Manager struct {
	strict    bool
	committed *zset.ZSet // duplicated integrated copy of everything committed so far, kept only for validation
	pending   *zset.ZSet
}

// New returns a change manager. When strict is true, Validate (and therefore Accumulate) rejects
// a delta that would delete more copies of a document than are currently known to be present.
func New(strict bool) *Manager {
	return &Manager{strict: strict, committed: zset.New(), pending: zset.New()}
}

// Validate checks delta against the manager's own running integrated copy of committed plus
// already-pending changes. In non-strict mode it always succeeds: over-deletion is allowed to
// settle into a negative weight, which is a legitimate transient Z-set state.
func (m *Manager) Validate(delta *zset.ZSet) error {
	if !m.strict {
		return nil
	}
	combined, err := m.committed.Add(m.pending)
	if err != nil {
		return circuit.NewError(circuit.KindInput, "validate", err)
	}
	var invalid error
	err = delta.ForEach(func(doc zset.Document, weight int) error {
		if weight >= 0 {
			return nil
		}
		current, err := combined.Weight(doc)
		if err != nil {
			return err
		}
		if current+weight < 0 {
			invalid = fmt.Errorf("delete of %v exceeds known weight (have %d, deleting %d)", doc, current, -weight)
		}
		return nil
	})
	if err != nil {
		return circuit.NewError(circuit.KindInput, "validate", err)
	}
	if invalid != nil {
		return circuit.NewError(circuit.KindInput, "validate", invalid)
	}
	return nil
}

// Accumulate validates delta and, if it passes, folds it into the pending batch.
func (m *Manager) Accumulate(delta *zset.ZSet) error {
	if err := m.Validate(delta); err != nil {
		return err
	}
	updated, err := m.pending.Add(delta)
	if err != nil {
		return circuit.NewError(circuit.KindInput, "accumulate", err)
	}
	m.pending = updated
	return nil
}

// Commit returns everything accumulated since the last commit, folds it into the manager's
// committed copy, and resets the pending batch to zero. The returned Z-set is what a caller
// should feed into the circuit's source stream for this tick.
func (m *Manager) Commit() (*zset.ZSet, error) {
	delta := m.pending
	updated, err := m.committed.Add(delta)
	if err != nil {
		return nil, circuit.NewError(circuit.KindInput, "commit", err)
	}
	m.committed = updated
	m.pending = zset.New()
	return delta, nil
}

// Pending returns the currently accumulated, not-yet-committed batch without consuming it.
func (m *Manager) Pending() *zset.ZSet { return m.pending.DeepCopy() }
