// Package dag turns the set of processors a graph compiles down to
// into a dependency DAG of scheduling tasks, and runs it once per
// audio period either on the calling goroutine alone or spread across
// a [worker.Pool].
package dag

import (
	"fmt"
	"sync/atomic"
)

// TaskID identifies a task within one Dag.
type TaskID uint64

// Task is one scheduling unit — typically "run this processor and
// publish its [graph.Result]s" — given the context for the period
// currently being processed.
type Task func(ctx *ThreadContext)

// ThreadContext carries per-period state a task needs that isn't part
// of its own closure: the period's buffer size and the event-buffer
// arena it should draw scratch buffers from. One ThreadContext exists
// per executing thread (main-worker and each pool worker each get
// their own), never shared.
type ThreadContext struct {
	BufferSize  int
	EventMemory EventMemory
}

// EventMemory is the per-thread event-buffer arena a [ThreadContext]
// draws from; satisfied by [*graph.EventMemory].
type EventMemory interface {
	Release()
}

// Dag accumulates tasks and their dependencies before being compiled
// into an [Executor] via [Dag.Compile].
type Dag struct {
	tasks  map[TaskID]Task
	graph  map[TaskID][]TaskID
	nextID TaskID
}

// New returns an empty Dag.
func New() *Dag {
	return &Dag{
		tasks: make(map[TaskID]Task),
		graph: make(map[TaskID][]TaskID),
	}
}

// AddTask registers a task with no dependencies (a DAG root) and
// returns its ID.
func (d *Dag) AddTask(t Task) TaskID {
	id := d.nextID
	d.nextID++
	d.tasks[id] = t
	d.graph[id] = nil
	return id
}

// AddChildTask registers t as a new task that depends on parent,
// equivalent to AddTask followed by AddChild.
func (d *Dag) AddChildTask(parent TaskID, t Task) TaskID {
	if _, ok := d.graph[parent]; !ok {
		panic(fmt.Sprintf("dag: parent task %d not found", parent))
	}
	id := d.AddTask(t)
	d.graph[parent] = append(d.graph[parent], id)
	return id
}

// AddChild records that child must not run until parent has
// completed. It panics if child is already an ancestor of parent,
// since that would create a cycle.
func (d *Dag) AddChild(parent, child TaskID) {
	if _, ok := d.graph[parent]; !ok {
		panic(fmt.Sprintf("dag: parent task %d not found", parent))
	}
	if _, ok := d.graph[child]; !ok {
		panic(fmt.Sprintf("dag: child task %d not found", child))
	}
	if d.isDescendant(child, parent) {
		panic("dag: child is ancestor of the parent")
	}
	d.graph[parent] = append(d.graph[parent], child)
}

func (d *Dag) isDescendant(parent, candidate TaskID) bool {
	if parent == candidate {
		return true
	}
	for _, c := range d.graph[parent] {
		if d.isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

// node is one compiled scheduling unit. next is the intrusive Treiber
// stack link the multi-threaded executor's run queue uses, embedded
// directly rather than boxed separately so pushing a node never
// allocates.
type node struct {
	task             Task
	children         []*node
	numParents       int
	parentsToProcess atomic.Int64
	next             atomic.Pointer[node]
}

func (n *node) resetForPeriod() {
	n.parentsToProcess.Store(int64(n.numParents))
	n.next.Store(nil)
}

func compileNodes(tasks map[TaskID]Task, graph map[TaskID][]TaskID) map[TaskID]*node {
	nodes := make(map[TaskID]*node, len(tasks))
	for id, t := range tasks {
		nodes[id] = &node{task: t}
	}
	for parent, children := range graph {
		for _, child := range children {
			nodes[parent].children = append(nodes[parent].children, nodes[child])
			nodes[child].numParents++
		}
	}
	return nodes
}
