//go:build linux

package thread

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func acquireRealTime(rt RealTime) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(rt.Priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr SCHED_FIFO priority %d: %w", rt.Priority, err)
	}

	if len(rt.CPUs) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range rt.CPUs {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity %v: %w", rt.CPUs, err)
	}
	return nil
}

func dropRealTime() error {
	attr := unix.SchedAttr{
		Size:   unix.SizeofSchedAttr,
		Policy: unix.SCHED_NORMAL,
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr SCHED_NORMAL: %w", err)
	}
	return nil
}
