package blecore

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Errno is a positive POSIX error number. At API boundaries it is reported
// as the negative integer returned by Code.
type Errno int

const (
	EINVAL    = Errno(syscall.EINVAL)
	ENOMEM    = Errno(syscall.ENOMEM)
	ETIMEDOUT = Errno(syscall.ETIMEDOUT)
	EBUSY     = Errno(syscall.EBUSY)
	EALREADY  = Errno(syscall.EALREADY)
	ENODEV    = Errno(syscall.ENODEV)
	ENOTSUP   = Errno(syscall.ENOTSUP)
	EAGAIN    = Errno(syscall.EAGAIN)
)

func (e Errno) Error() string {
	return syscall.Errno(e).Error()
}

// Code is the negative status for e.
func (e Errno) Code() int {
	return -int(e)
}

// Error carries the operation that failed together with its errno.
type Error struct {
	Op    string
	Errno Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Errno.Error()
	}
	if e.Op == "" {
		return msg
	}
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Inner)
	}
	return fmt.Sprintf("%s: %s (errno=%d)", e.Op, msg, -int(e.Errno))
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches a bare Errno or another *Error with the same errno.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return e.Errno == t
	case *Error:
		return e.Errno == t.Errno
	}
	return false
}

// NewError returns an *Error for op.
func NewError(op string, errno Errno) *Error {
	return &Error{Op: op, Errno: errno}
}

// Wrapf returns an *Error for op with a formatted message.
func Wrapf(errno Errno, op string, format string, args ...interface{}) error {
	return &Error{Op: op, Errno: errno, Msg: fmt.Sprintf(format, args...)}
}

// WrapErr attaches errno and op to a lower level error.
func WrapErr(err error, errno Errno, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Errno: errno, Inner: err}
}

// Code returns the negative integer status for err. nil maps to 0 and
// errors that carry no errno map to -EINVAL.
func Code(err error) int {
	if err == nil {
		return 0
	}

	var be *Error
	if errors.As(err, &be) {
		return be.Errno.Code()
	}

	var en Errno
	if errors.As(err, &en) {
		return en.Code()
	}

	switch c := errors.Cause(err).(type) {
	case Errno:
		return c.Code()
	case syscall.Errno:
		return -int(c)
	}
	return EINVAL.Code()
}

// ErrnoOf extracts the Errno carried by err, or 0.
func ErrnoOf(err error) Errno {
	c := Code(err)
	if c == 0 {
		return 0
	}
	return Errno(-c)
}
