package dag

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dkotrev/piejam-engine-go/internal/engine/worker"
)

// multiThreaded spreads a period's independent DAG branches across a
// set of workers plus the calling goroutine (the "main worker"). All
// threads pop from one shared lock-free [runQueue]; a thread whose node
// makes children ready keeps the first of them for itself instead of
// pushing and popping it, which also keeps the child's inputs warm in
// that core's cache, and pushes the others.
type multiThreaded struct {
	nodes   map[TaskID]*node
	workers []worker.Task // bound dagWorker.run closures, one per pool worker
	workerHandles []Worker

	initial []*node
	queue   runQueue

	nodesToProcess atomic.Int64
	running        atomic.Int64
	bufferSize     atomic.Int64

	mainWorker *dagWorker
	sideWorkers []*dagWorker
}

func newMultiThreaded(nodes map[TaskID]*node, workers []Worker, newEventMemory func() EventMemory) *multiThreaded {
	e := &multiThreaded{
		nodes:         nodes,
		workerHandles: workers,
	}

	for _, n := range nodes {
		if n.numParents == 0 {
			e.initial = append(e.initial, n)
		}
	}

	e.mainWorker = newDagWorker(newEventMemory(), &e.running, &e.nodesToProcess, &e.bufferSize, &e.queue)

	e.sideWorkers = make([]*dagWorker, len(workers))
	e.workers = make([]worker.Task, len(workers))
	for i := range workers {
		w := newDagWorker(newEventMemory(), &e.running, &e.nodesToProcess, &e.bufferSize, &e.queue)
		e.sideWorkers[i] = w
		e.workers[i] = w.run
	}

	return e
}

func (e *multiThreaded) Run(bufferSize int) time.Duration {
	e.bufferSize.Store(int64(bufferSize))

	for _, n := range e.nodes {
		n.resetForPeriod()
	}

	for _, n := range e.initial {
		e.queue.push(n)
	}

	e.nodesToProcess.Store(int64(len(e.nodes)))

	for i, w := range e.workerHandles {
		w.Wakeup(e.workers[i])
	}

	e.mainWorker.run()

	for runtime.Gosched(); e.running.Load() > 0; runtime.Gosched() {
	}

	total := e.mainWorker.cpuLoad
	for _, w := range e.sideWorkers {
		total += w.cpuLoad
	}
	if n := int64(1 + len(e.sideWorkers)); n > 0 {
		total /= time.Duration(n)
	}
	return total
}

// dagWorker is one thread's (main or pool) view of the shared run
// queue: pop a ready node, run it, and keep running the first child it
// made ready inline instead of round-tripping it through the queue;
// any other newly ready children are pushed.
type dagWorker struct {
	eventMemory    EventMemory
	running        *atomic.Int64
	nodesToProcess *atomic.Int64
	bufferSize     *atomic.Int64
	queue          *runQueue
	cpuLoad        time.Duration
}

func newDagWorker(em EventMemory, running, nodesToProcess, bufferSize *atomic.Int64, q *runQueue) *dagWorker {
	return &dagWorker{
		eventMemory:    em,
		running:        running,
		nodesToProcess: nodesToProcess,
		bufferSize:     bufferSize,
		queue:          q,
	}
}

func (w *dagWorker) run() {
	w.running.Add(1)
	start := time.Now()

	ctx := &ThreadContext{BufferSize: int(w.bufferSize.Load()), EventMemory: w.eventMemory}

	for w.nodesToProcess.Load() > 0 {
		n := w.queue.pop()
		for n != nil {
			n = w.processNode(n, ctx)
		}
	}

	w.eventMemory.Release()
	w.cpuLoad = time.Since(start)

	w.running.Add(-1)
}

// processNode runs n and returns the one child it should run next
// inline, pushing any further newly-ready children onto the shared
// queue for another thread to pick up.
func (w *dagWorker) processNode(n *node, ctx *ThreadContext) *node {
	n.task(ctx)

	var next *node
	for _, child := range n.children {
		if child.parentsToProcess.Add(-1) == 0 {
			if next != nil {
				w.queue.push(child)
			} else {
				next = child
			}
		}
	}

	w.nodesToProcess.Add(-1)

	return next
}
