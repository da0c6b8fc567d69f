// Package rtthread applies the thread configuration the audio-main
// thread and every real-time worker thread need: pin to a CPU and
// raise the thread's scheduling priority where the OS allows it. It
// is the one place that
// reaches for golang.org/x/sys/unix so the rest of the engine never
// has to think about platform syscalls directly.
package rtthread

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Config describes how one OS thread should be configured before it
// starts running real-time work. The zero value pins to CPU 0 and
// leaves the priority alone; Name is carried for diagnostics only and
// Apply does not set it on the thread.
type Config struct {
	// CPU is the CPU index to pin to, or -1 for "no affinity".
	CPU int
	// Priority is how far to raise the thread's priority, applied as
	// the nice value -Priority; 0 leaves the priority unchanged.
	Priority int
	Name     string
}

// Apply must be called from the goroutine that is to be configured:
// it locks the calling goroutine to its current OS thread (a
// prerequisite for both affinity and priority to stick), sets CPU
// affinity if requested, and, if a priority was requested, lowers the
// thread's nice value through setpriority. It does not switch the
// thread to a real-time scheduling class such as SCHED_FIFO. A
// priority failure (typically missing CAP_SYS_NICE) is ignored and
// not reported, but affinity failure is returned so callers can
// decide whether it matters on their target.
func (c Config) Apply() error {
	runtime.LockOSThread()

	if c.CPU >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(c.CPU)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return fmt.Errorf("rtthread: pin to cpu %d: %w", c.CPU, err)
		}
	}

	if c.Priority > 0 {
		// Best-effort: real-time scheduling classes require
		// privileges this process may not have (e.g. outside a
		// container with CAP_SYS_NICE, or off the target Pi). A
		// failure here is intentionally swallowed: the thread still
		// runs, just without a priority boost.
		_ = unix.Setpriority(unix.PRIO_PROCESS, 0, -c.Priority)
	}

	return nil
}

// RoundRobinCPU returns the CPU index the i-th worker (0-based) should
// be pinned to, starting at CPU 2 (CPU 1 is
// reserved for the audio-main thread, CPU 0 is left for system load),
// wrapping around numCPU if there are more workers than cores.
func RoundRobinCPU(i, numCPU int) int {
	if numCPU <= 2 {
		return -1
	}
	usable := numCPU - 2
	return 2 + i%usable
}
