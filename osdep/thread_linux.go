//go:build linux

package osdep

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CurrentThreadID returns the kernel thread id of the caller. It is stable
// only for goroutines bound with BindThread.
func CurrentThreadID() ThreadID {
	return ThreadID(unix.Gettid())
}

// BindThread wires the calling goroutine to its OS thread for the rest of
// its life and returns the thread id. The thread exits with the goroutine.
func BindThread() ThreadID {
	runtime.LockOSThread()
	return CurrentThreadID()
}

// SetThreadName names the calling OS thread. The kernel truncates names to
// 15 bytes.
func SetThreadName(name string) error {
	b := make([]byte, 16)
	copy(b[:15], name)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}

// YieldThread gives up the processor of the calling OS thread.
func YieldThread() {
	_, _, _ = unix.Syscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
	runtime.Gosched()
}
