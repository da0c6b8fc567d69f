package dag

import (
	"time"

	"github.com/dkotrev/piejam-engine-go/internal/engine/worker"
)

// Executor runs a compiled [Dag] once per audio period and reports
// how much CPU time the period consumed.
type Executor interface {
	Run(bufferSize int) time.Duration
}

// Compile builds an [Executor] for d. With no workers it returns a
// single-threaded executor that runs every task on the calling
// goroutine; given a non-empty worker pool it spreads the DAG's
// independent branches across those workers plus the calling
// goroutine as an additional "main worker".
func (d *Dag) Compile(workers []Worker, newEventMemory func() EventMemory) Executor {
	nodes := compileNodes(d.tasks, d.graph)

	if len(workers) == 0 {
		return newSingleThreaded(nodes, newEventMemory())
	}

	return newMultiThreaded(nodes, workers, newEventMemory)
}

// Worker is the subset of [*worker.Worker] the multi-threaded executor
// needs: hand off one task, and block until it's done.
type Worker interface {
	Wakeup(task worker.Task)
	Wait()
}
