package blecore

import (
	"fmt"
	"runtime"
)

// AssertError is the panic value raised by a failed contract check.
type AssertError struct {
	Msg  string
	File string
	Line int
}

func (a *AssertError) Error() string {
	return fmt.Sprintf("assertion failed at %s:%d: %s", a.File, a.Line, a.Msg)
}

// Assert aborts with an *AssertError when cond is false. It guards
// conditions that cannot occur under the documented protocol, such as a
// double free or a cursor overrun; recoverable failures return errors.
func Assert(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}

	ae := &AssertError{Msg: fmt.Sprintf(format, args...)}
	_, ae.File, ae.Line, _ = runtime.Caller(1)
	GetLogger().Error(ae.Error())
	panic(ae)
}

// Caller returns "file:line" for the caller skip frames above the function
// invoking Caller.
func Caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "?:0"
	}
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			file = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}
