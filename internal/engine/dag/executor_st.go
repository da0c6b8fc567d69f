package dag

import "time"

// singleThreaded runs every node on the calling goroutine, using a
// plain slice as a LIFO run queue — no atomics needed since nothing
// else touches the nodes concurrently.
type singleThreaded struct {
	nodes       map[TaskID]*node
	eventMemory EventMemory
	queue       []*node
}

func newSingleThreaded(nodes map[TaskID]*node, em EventMemory) *singleThreaded {
	return &singleThreaded{
		nodes:       nodes,
		eventMemory: em,
		queue:       make([]*node, 0, len(nodes)),
	}
}

func (e *singleThreaded) Run(bufferSize int) time.Duration {
	start := time.Now()

	e.queue = e.queue[:0]
	for _, n := range e.nodes {
		n.resetForPeriod()
		if n.numParents == 0 {
			e.queue = append(e.queue, n)
		}
	}

	ctx := &ThreadContext{BufferSize: bufferSize, EventMemory: e.eventMemory}

	for len(e.queue) > 0 {
		n := e.queue[len(e.queue)-1]
		e.queue = e.queue[:len(e.queue)-1]

		n.task(ctx)

		for _, child := range n.children {
			if child.parentsToProcess.Add(-1) == 0 {
				e.queue = append(e.queue, child)
			}
		}
	}

	e.eventMemory.Release()

	return time.Since(start)
}
