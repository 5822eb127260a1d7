// Package exchange implements the only inter-worker synchronization point in a sharded engine: a
// stable-hash partitioner that routes each document to one worker, and a tick barrier that runs
// every worker's circuit for one tick and waits for all of them before returning.
package exchange

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"go.l7mp.io/dbsp/pkg/circuit"
	"go.l7mp.io/dbsp/pkg/zset"
)

// KeyFunc extracts the partition key from a document. Two documents with the same key always
// land on the same worker, which is what makes stateful per-key operators (joins, distinct,
// gather) correct under sharding: a document never needs to move mid-computation.
type KeyFunc func(zset.Document) (any, error)

// Partition splits delta across n workers by hashing KeyFunc(doc), so calling Partition with the
// same n on two different ticks routes a given key to the same worker index both times.
func Partition(delta *zset.ZSet, n int, key KeyFunc) ([]*zset.ZSet, error) {
	shards := make([]*zset.ZSet, n)
	for i := range shards {
		shards[i] = zset.New()
	}
	err := delta.ForEach(func(doc zset.Document, weight int) error {
		k, err := key(doc)
		if err != nil {
			return err
		}
		idx := WorkerFor(k, n)
		return shards[idx].AddMutate(doc, weight)
	})
	if err != nil {
		return nil, err
	}
	return shards, nil
}

// WorkerFor returns the stable worker index for a partition key, in [0, n).
func WorkerFor(key any, n int) int {
	data, err := zset.CanonicalKey(key)
	if err != nil {
		// CanonicalKey only fails for a value JSON cannot represent; such a key gets a
		// fixed shard rather than failing the whole partition, since the caller has no
		// way to correct the document that produced it.
		return 0
	}
	return int(xxhash.Sum64String(data) % uint64(n))
}

// Barrier runs every worker's circuit for one tick, in parallel, and returns each worker's sink
// outputs only once all workers have completed the tick. A tick is the only point at which
// workers synchronize; mid-tick cancellation is not supported, so ctx is honored only between
// ticks, not inside Circuit.Tick itself.
type Barrier struct {
	Workers []*circuit.Circuit
}

// Tick runs inputs[i] through Workers[i].Tick for every worker concurrently and returns the
// per-worker outputs in the same order. If any worker returns an error, Tick returns the first
// one observed and the other workers' results are discarded; partial output across workers for
// one logical tick is never delivered to the caller.
func (b *Barrier) Tick(ctx context.Context, inputs []map[string]*zset.ZSet) ([]map[string]*zset.ZSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != len(b.Workers) {
		return nil, circuit.NewError(circuit.KindInput, "exchange-tick", errWorkerCountMismatch(len(b.Workers), len(inputs)))
	}

	outputs := make([]map[string]*zset.ZSet, len(b.Workers))
	g, _ := errgroup.WithContext(ctx)
	for i := range b.Workers {
		i := i
		g.Go(func() error {
			out, err := b.Workers[i].Tick(inputs[i])
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

type workerCountMismatchError struct{ got, want int }

func (e workerCountMismatchError) Error() string {
	return "exchange: wrong number of per-worker input maps"
}

func errWorkerCountMismatch(want, got int) error {
	return workerCountMismatchError{got: got, want: want}
}
