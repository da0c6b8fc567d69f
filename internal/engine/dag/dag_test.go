package dag_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dkotrev/piejam-engine-go/internal/engine/dag"
	"github.com/dkotrev/piejam-engine-go/internal/engine/worker"
)

type nopEventMemory struct{ released atomic.Int32 }

func (m *nopEventMemory) Release() { m.released.Add(1) }

func TestDag_SingleThreaded_RunsEveryTaskOnce(t *testing.T) {
	d := dag.New()

	var order []string

	a := d.AddTask(func(*dag.ThreadContext) { order = append(order, "a") })
	b := d.AddChildTask(a, func(*dag.ThreadContext) { order = append(order, "b") })
	_ = d.AddChildTask(b, func(*dag.ThreadContext) { order = append(order, "c") })

	em := &nopEventMemory{}
	exec := d.Compile(nil, func() dag.EventMemory { return em })

	exec.Run(64)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.EqualValues(t, 1, em.released.Load())
}

func TestDag_SingleThreaded_RunsDiamondDependenciesOnce(t *testing.T) {
	d := dag.New()

	var count atomic.Int32
	root := d.AddTask(func(*dag.ThreadContext) {})
	left := d.AddChildTask(root, func(*dag.ThreadContext) {})
	right := d.AddChildTask(root, func(*dag.ThreadContext) {})
	sink := d.AddTask(func(*dag.ThreadContext) { count.Add(1) })
	d.AddChild(left, sink)
	d.AddChild(right, sink)

	exec := d.Compile(nil, func() dag.EventMemory { return &nopEventMemory{} })
	exec.Run(64)

	assert.EqualValues(t, 1, count.Load(), "sink must run exactly once despite two parents")
}

func TestDag_AddChild_RejectsCycle(t *testing.T) {
	d := dag.New()
	a := d.AddTask(func(*dag.ThreadContext) {})
	b := d.AddChildTask(a, func(*dag.ThreadContext) {})

	assert.Panics(t, func() { d.AddChild(b, a) })
}

func TestDag_MultiThreaded_RunsEveryTaskExactlyOnce(t *testing.T) {
	d := dag.New()

	const n = 40
	var hits [n]atomic.Int32
	root := d.AddTask(func(*dag.ThreadContext) { hits[0].Add(1) })
	prev := root
	for i := 1; i < n; i++ {
		i := i
		prev = d.AddChildTask(prev, func(*dag.ThreadContext) { hits[i].Add(1) })
	}

	pool := worker.NewPool(3, 8, 0)
	defer pool.Close()

	exec := d.Compile(asDagWorkers(pool.Workers()), func() dag.EventMemory { return &nopEventMemory{} })
	exec.Run(64)

	for i := 0; i < n; i++ {
		require.EqualValues(t, 1, hits[i].Load(), "task %d must run exactly once", i)
	}
}

func asDagWorkers(ws []*worker.Worker) []dag.Worker {
	out := make([]dag.Worker, len(ws))
	for i, w := range ws {
		out[i] = w
	}
	return out
}

func TestDag_MultiThreaded_RepeatedRunsAreStable(t *testing.T) {
	d := dag.New()
	var total atomic.Int32
	a := d.AddTask(func(*dag.ThreadContext) { total.Add(1) })
	_ = d.AddChildTask(a, func(*dag.ThreadContext) { total.Add(1) })

	pool := worker.NewPool(2, 8, 0)
	defer pool.Close()

	exec := d.Compile(asDagWorkers(pool.Workers()), func() dag.EventMemory { return &nopEventMemory{} })

	for i := 0; i < 10; i++ {
		exec.Run(64)
	}

	assert.EqualValues(t, 20, total.Load())
}

func TestDag_RandomDAG_EveryNodeOnceParentsFirst(t *testing.T) {
	// For a randomly generated DAG, one execution sweeps every node
	// exactly once and every parent finishes before every child, on
	// both executor shapes.
	pool := worker.NewPool(3, 8, 0)
	defer pool.Close()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(t, "nodes")
		multiThreaded := rapid.Bool().Draw(t, "mt")

		d := dag.New()

		var mu sync.Mutex
		finished := make(map[int]bool, n)
		var violations atomic.Int32

		ids := make([]dag.TaskID, n)
		parents := make([][]int, n)
		for i := 0; i < n; i++ {
			if i > 0 {
				numParents := rapid.IntRange(0, min(i, 4)).Draw(t, "numParents")
				seen := map[int]bool{}
				for p := 0; p < numParents; p++ {
					parent := rapid.IntRange(0, i-1).Draw(t, "parent")
					if !seen[parent] {
						seen[parent] = true
						parents[i] = append(parents[i], parent)
					}
				}
			}

			i := i
			ids[i] = d.AddTask(func(*dag.ThreadContext) {
				mu.Lock()
				for _, p := range parents[i] {
					if !finished[p] {
						violations.Add(1)
					}
				}
				if finished[i] {
					violations.Add(1) // ran twice
				}
				finished[i] = true
				mu.Unlock()
			})
			for _, p := range parents[i] {
				d.AddChild(ids[p], ids[i])
			}
		}

		var workers []dag.Worker
		if multiThreaded {
			workers = asDagWorkers(pool.Workers())
		}
		exec := d.Compile(workers, func() dag.EventMemory { return &nopEventMemory{} })
		exec.Run(64)

		require.EqualValues(t, 0, violations.Load())
		require.Len(t, finished, n)
	})
}
