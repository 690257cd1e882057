package h4

import (
	"time"
)

// H4 packet indicators.
const (
	CommandPacket = 0x01
	ACLPacket     = 0x02
	SCOPacket     = 0x03
	EventPacket   = 0x04
)

const (
	eventHeaderLength = 3
	aclHeaderLength   = 5
)

// frame assembles H4 packets out of arbitrarily split reads. Bytes ahead
// of a packet indicator are skipped, and a partial frame older than the
// timeout is thrown away.
type frame struct {
	b        []byte
	deadline time.Time
	timeout  time.Duration
	emit     func([]byte)

	// resyncs counts the times bytes were skipped looking for a start byte
	resyncs int
}

func newFrame(timeout time.Duration, emit func([]byte)) *frame {
	return &frame{
		b:       make([]byte, 0, 256),
		timeout: timeout,
		emit:    emit,
	}
}

func (f *frame) reset() {
	f.b = f.b[:0]
	f.deadline = time.Time{}
}

// Assemble feeds b into the frame, emitting every frame it completes.
// emit must copy what it keeps.
func (f *frame) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}
	if !f.deadline.IsZero() && time.Now().After(f.deadline) {
		// stale partial frame
		f.reset()
		f.resyncs++
	}

	for {
		if len(f.b) == 0 {
			if b = f.waitStart(b); b == nil {
				return
			}
		}

		tl, ok := f.length()
		if !ok {
			if len(b) == 0 {
				return
			}
			// header incomplete, take what is needed for the length first
			need := aclHeaderLength
			if f.b[0] == EventPacket {
				need = eventHeaderLength
			}
			n := need - len(f.b)
			if n > len(b) {
				n = len(b)
			}
			f.b = append(f.b, b[:n]...)
			b = b[n:]
			continue
		}

		n := tl - len(f.b)
		if n > len(b) {
			f.b = append(f.b, b...)
			return
		}
		f.b = append(f.b, b[:n]...)
		b = b[n:]

		f.emit(f.b)
		f.reset()
	}
}

// waitStart drops bytes until a packet indicator and starts a frame with
// it. It returns the rest of b after the indicator, or nil when none was
// found.
func (f *frame) waitStart(b []byte) []byte {
	for i, v := range b {
		switch v {
		case EventPacket, ACLPacket:
		default:
			continue
		}

		if i > 0 {
			f.resyncs++
		}
		f.b = append(f.b, v)
		f.deadline = time.Now().Add(f.timeout)
		return b[i+1:]
	}

	if len(b) > 0 {
		f.resyncs++
	}
	return nil
}

// length returns the total frame length once the header is complete.
func (f *frame) length() (int, bool) {
	switch f.b[0] {
	case EventPacket:
		if len(f.b) < eventHeaderLength {
			return 0, false
		}
		return int(f.b[2]) + eventHeaderLength, true
	case ACLPacket:
		if len(f.b) < aclHeaderLength {
			return 0, false
		}
		l := int(f.b[3]) | (int(f.b[4]) << 8)
		return l + aclHeaderLength, true
	default:
		return 0, false
	}
}
