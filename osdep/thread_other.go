//go:build !linux

package osdep

import (
	"bytes"
	"runtime"
	"strconv"
)

// CurrentThreadID returns the goroutine id of the caller on platforms
// without a kernel thread id.
func CurrentThreadID() ThreadID {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return ThreadID(id)
}

func BindThread() ThreadID {
	runtime.LockOSThread()
	return CurrentThreadID()
}

func SetThreadName(name string) error {
	return nil
}

func YieldThread() {
	runtime.Gosched()
}
