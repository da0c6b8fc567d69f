package worker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/engine/worker"
	"github.com/dkotrev/piejam-engine-go/internal/rtthread"
)

func TestWorker_WakeupRunsTaskExactlyOnce(t *testing.T) {
	w := worker.New(rtthread.Config{CPU: -1})
	defer w.Close()

	var ran atomic.Int32
	w.Wakeup(func() { ran.Add(1) })
	w.Wait()

	assert.EqualValues(t, 1, ran.Load())
}

func TestWorker_WaitBlocksUntilTaskCompletes(t *testing.T) {
	w := worker.New(rtthread.Config{CPU: -1})
	defer w.Close()

	done := make(chan struct{})
	w.Wakeup(func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	})
	w.Wait()

	select {
	case <-done:
	default:
		t.Fatal("Wait returned before the task finished")
	}
}

func TestWorker_SerializesSuccessiveTasks(t *testing.T) {
	w := worker.New(rtthread.Config{CPU: -1})
	defer w.Close()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		w.Wakeup(func() { order = append(order, i) })
		w.Wait()
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPool_RunsATaskOnEveryWorker(t *testing.T) {
	p := worker.NewPool(4, 8, 0)
	defer p.Close()

	require.Equal(t, 4, p.Len())

	var hits atomic.Int32
	for _, w := range p.Workers() {
		w.Wakeup(func() { hits.Add(1) })
	}
	for _, w := range p.Workers() {
		w.Wait()
	}

	assert.EqualValues(t, 4, hits.Load())
}

func TestPool_CloseStopsAllWorkers(t *testing.T) {
	p := worker.NewPool(3, 8, 0)
	p.Close()
	// Close must be idempotent-safe to call once and return; a second
	// Wakeup after Close is not part of the contract and is not
	// exercised here.
}
