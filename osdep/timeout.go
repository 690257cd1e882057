package osdep

import "time"

// Timeout is a wait bound in milliseconds. Zero means do not wait and any
// negative value means wait forever.
type Timeout int32

const (
	NoWait  Timeout = 0
	Forever Timeout = -1
)

// Millis returns a Timeout of ms milliseconds.
func Millis(ms int) Timeout {
	return Timeout(ms)
}

// Seconds returns a Timeout of s seconds.
func Seconds(s int) Timeout {
	return Timeout(s * 1000)
}

// FromDuration rounds d up to whole milliseconds. Negative durations map to
// Forever.
func FromDuration(d time.Duration) Timeout {
	if d < 0 {
		return Forever
	}
	return Timeout((d + time.Millisecond - 1) / time.Millisecond)
}

func (t Timeout) IsNoWait() bool {
	return t == 0
}

func (t Timeout) IsForever() bool {
	return t < 0
}

// Duration converts a finite timeout. Forever maps to -1.
func (t Timeout) Duration() time.Duration {
	if t < 0 {
		return -1
	}
	return time.Duration(t) * time.Millisecond
}

// Deadline returns the absolute expiry in clock milliseconds for a timeout
// that starts at now. ok is false for Forever.
func (t Timeout) Deadline(now uint64) (deadline uint64, ok bool) {
	if t < 0 {
		return 0, false
	}
	return now + uint64(t), true
}

// Remaining recomputes a timeout in a wait loop that started at start.
// Forever stays Forever; an expired bound becomes NoWait.
func (t Timeout) Remaining(start, now uint64) Timeout {
	if t <= 0 {
		return t
	}
	el := now - start
	if el >= uint64(t) {
		return NoWait
	}
	return t - Timeout(el)
}
