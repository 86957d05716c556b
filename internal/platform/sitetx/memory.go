package sitetx

import (
	"context"
	"sync"
	"time"

	id "misiones/pkg/domain"
	txcontext "misiones/pkg/platform/tx"
)

// numShards spreads sites across independent locks. Two sites that hash to the
// same shard serialize against each other, which is safe but slower.
const numShards = 128

// Memory serializes site transactions with sharded mutexes. Memory stores
// record undo entries in a journal carried by the context; a failed
// transaction or savepoint replays them before the lock is released.
type Memory struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewMemory(timeout time.Duration) *Memory {
	return &Memory{timeout: timeout}
}

func (m *Memory) RunInTx(ctx context.Context, siteID id.SiteID, fn func(txCtx context.Context) error) error {
	if InTx(ctx) {
		return ErrNestedTx
	}
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	ctx, cancel := withDeadline(ctx, m.timeout)
	defer cancel()

	shard := &m.shards[selectShard(siteKey(siteID))]
	shard.Lock()
	defer shard.Unlock()

	// the wait for the lock may have outlived the deadline
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	journal := &txcontext.Journal{}
	if err := fn(txcontext.WithJournal(markInTx(ctx), journal)); err != nil {
		journal.RollbackTo(0)
		return err
	}
	journal.Commit()
	return nil
}

func (m *Memory) Savepoint(ctx context.Context, fn func(spCtx context.Context) error) error {
	journal, ok := txcontext.JournalFrom(ctx)
	if !ok {
		return fn(ctx)
	}
	mark := journal.Mark()
	if err := fn(ctx); err != nil {
		journal.RollbackTo(mark)
		return err
	}
	return nil
}

// selectShard uses FNV-1a for an even spread of uuid strings.
func selectShard(key string) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= fnvPrime
	}
	return int(h % numShards)
}
