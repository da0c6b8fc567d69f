// Package worker implements the real-time worker pool: a
// fixed-size set of pinned, priority-elevated threads, each accepting
// one cooperative task at a time through a two-semaphore handshake.
package worker

import "github.com/dkotrev/piejam-engine-go/internal/rtthread"

// Task is a unit of real-time work. Implementations must be stateless
// function values or close only over long-lived objects — never over
// per-call data that would need to be allocated fresh — and must
// never panic or block.
type Task func()

// Worker runs one task at a time on its own pinned OS thread.
type Worker struct {
	semWork     chan struct{}
	semFinished chan struct{}
	task        Task
	stop        chan struct{}
	started     chan struct{}
}

// New starts a worker goroutine configured per conf and returns
// immediately; conf is applied on the worker's own goroutine before
// it starts accepting tasks.
func New(conf rtthread.Config) *Worker {
	w := &Worker{
		semWork:     make(chan struct{}, 1),
		semFinished: make(chan struct{}, 1),
		stop:        make(chan struct{}),
		started:     make(chan struct{}),
	}
	w.semFinished <- struct{}{} // initial value 1: idle

	go w.loop(conf)
	<-w.started

	return w
}

func (w *Worker) loop(conf rtthread.Config) {
	_ = conf.Apply()
	close(w.started)

	for {
		<-w.semWork // acquire

		select {
		case <-w.stop:
			return
		default:
		}

		w.task()

		w.semFinished <- struct{}{} // release
	}
}

// Wakeup schedules task to run on the worker. It blocks until the
// worker is ready to accept new work (i.e. its previous task, if any,
// has completed), then hands off task and returns without waiting for
// it to finish.
func (w *Worker) Wakeup(task Task) {
	<-w.semFinished // acquire: exclusive access, previous task done
	w.task = task
	w.semWork <- struct{}{} // release: worker may proceed
}

// Wait blocks until the worker's current task (if any) has completed.
func (w *Worker) Wait() {
	<-w.semFinished
	w.semFinished <- struct{}{}
}

// Close waits for the worker's current task, if any, then signals it
// to stop and wakes its loop; it returns without waiting for the
// goroutine to exit. Close must not be called concurrently with
// Wakeup.
func (w *Worker) Close() {
	<-w.semFinished // ensure no task in progress
	close(w.stop)
	w.semWork <- struct{}{} // wake the loop so it observes stop
}

// Pool is a fixed-size set of [Worker]s, pinned round-robin starting
// at CPU 2 (CPU 1 is reserved for the audio-main thread, CPU 0
// for system load).
type Pool struct {
	workers []*Worker
}

// NewPool starts n workers, each at the given real-time priority,
// pinned round-robin across numCPU logical CPUs.
func NewPool(n int, numCPU int, priority int) *Pool {
	p := &Pool{workers: make([]*Worker, n)}
	for i := 0; i < n; i++ {
		conf := rtthread.Config{
			CPU:      rtthread.RoundRobinCPU(i, numCPU),
			Priority: priority,
			Name:     workerName(i),
		}
		p.workers[i] = New(conf)
	}
	return p
}

func workerName(i int) string {
	return "piejam-audio-worker-" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// Workers returns the pool's workers in pinning order.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Len reports how many workers the pool holds.
func (p *Pool) Len() int {
	return len(p.workers)
}

// Close stops every worker in turn through [Worker.Close]; it does not
// wait for the workers' goroutines to exit.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
}
