// Package h4 turns an H4 UART byte stream into network buffers. Complete
// event and ACL frames are copied into buffers from a pool and put on a
// FIFO for the host to consume.
package h4

import (
	"context"
	"io"
	"sync"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/pkg/errors"
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/atomic"
	"github.com/rigado/blecore/buf"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/queue"
)

const (
	evtLEMeta       = 0x3e
	subevtAdvReport = 0x02

	defaultAllocTimeout = osdep.Timeout(100)
	defaultFrameTimeout = 500 * time.Millisecond
	readSize            = 512

	dropWarnsPerSecond = 5
)

// Stats counts the frames seen by an Ingress.
type Stats struct {
	Frames  int64 `json:"frames"`
	Dropped int64 `json:"dropped"`
	Resyncs int64 `json:"resyncs"`
}

// An Option configures an Ingress.
type Option func(*Ingress) error

// OptAllocTimeout sets how long non discardable frames wait for a buffer.
func OptAllocTimeout(t osdep.Timeout) Option {
	return func(i *Ingress) error {
		i.allocTimeout = t
		return nil
	}
}

// OptFrameTimeout sets how long a partial frame survives before resync.
func OptFrameTimeout(d time.Duration) Option {
	return func(i *Ingress) error {
		if d <= 0 {
			return blecore.Wrapf(blecore.EINVAL, "h4.OptFrameTimeout", "timeout %v", d)
		}
		i.frameTimeout = d
		return nil
	}
}

// Ingress reads H4 frames from a reader.
type Ingress struct {
	r    io.Reader
	pool *buf.Pool
	out  *queue.FIFO[buf.Buf, *buf.Buf]

	allocTimeout osdep.Timeout
	frameTimeout time.Duration
	frame        *frame
	limiter      *catrate.Limiter

	frames  atomic.Word
	dropped atomic.Word
	resyncs atomic.Word

	// fmu serialises assembly, cmu guards close
	fmu  sync.Mutex
	done chan struct{}
	cmu  sync.Mutex

	log blecore.Logger
}

// NewIngress returns an Ingress reading r, allocating from pool and
// delivering to out.
func NewIngress(r io.Reader, pool *buf.Pool, out *queue.FIFO[buf.Buf, *buf.Buf], opts ...Option) (*Ingress, error) {
	if r == nil || pool == nil || out == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "h4.NewIngress", "nil reader, pool or fifo")
	}

	i := &Ingress{
		r:            r,
		pool:         pool,
		out:          out,
		allocTimeout: defaultAllocTimeout,
		frameTimeout: defaultFrameTimeout,
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: dropWarnsPerSecond,
		}),
		done: make(chan struct{}),
		log:  blecore.PkgLogger("h4").ChildLogger(map[string]interface{}{"pool": pool.Name()}),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	i.frame = newFrame(i.frameTimeout, i.deliver)
	return i, nil
}

// Run reads until ctx is done, the ingress is closed or the reader fails.
// A closed ingress or io.EOF ends it without error.
func (i *Ingress) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = i.Close()
		case <-i.done:
		}
	}()

	tmp := make([]byte, readSize)
	for {
		if !i.isOpen() {
			return nil
		}

		n, err := i.r.Read(tmp)
		if n > 0 {
			i.Feed(tmp[:n])
		}

		switch {
		case err == nil:
		case !i.isOpen(), errors.Is(err, io.EOF):
			return nil
		default:
			return errors.Wrap(err, "can't read h4")
		}
	}
}

// Feed assembles b as if it had been read from the reader.
func (i *Ingress) Feed(b []byte) {
	i.fmu.Lock()
	before := i.frame.resyncs
	i.frame.Assemble(b)
	i.resyncs.Add(int64(i.frame.resyncs - before))
	i.fmu.Unlock()
}

// Close stops Run. The reader is closed when it is an io.Closer.
func (i *Ingress) Close() error {
	i.cmu.Lock()
	defer i.cmu.Unlock()

	select {
	case <-i.done:
		return nil
	default:
	}

	close(i.done)
	if c, ok := i.r.(io.Closer); ok {
		return errors.Wrap(c.Close(), "can't close h4")
	}
	return nil
}

func (i *Ingress) isOpen() bool {
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}

// Stats returns the counters so far.
func (i *Ingress) Stats() Stats {
	return Stats{
		Frames:  i.frames.Get(),
		Dropped: i.dropped.Get(),
		Resyncs: i.resyncs.Get(),
	}
}

// discardable reports whether f may be dropped without waiting for a
// buffer. Advertising reports are, the controller keeps sending them.
func discardable(f []byte) bool {
	return len(f) > 3 && f[0] == EventPacket && f[1] == evtLEMeta && f[3] == subevtAdvReport
}

func (i *Ingress) deliver(f []byte) {
	t := i.allocTimeout
	if discardable(f) {
		t = osdep.NoWait
	}

	size := len(f)
	if max := i.pool.Allocator().MaxAllocSize(); max > 0 && size > max {
		size = max
	}

	b, err := i.pool.AllocLen(size, t)
	if err != nil {
		i.drop(f, err)
		return
	}
	if n := b.AppendBytes(f, t, nil, nil); n < len(f) {
		b.Unref()
		i.drop(f, blecore.NewError("h4.deliver", blecore.ENOMEM))
		return
	}

	i.frames.Inc()
	blecore.Hexdump(i.log, f, "rx type 0x%02x", f[0])
	i.out.Put(b)
}

func (i *Ingress) drop(f []byte, err error) {
	i.dropped.Inc()
	if _, ok := i.limiter.Allow(f[0]); ok {
		i.log.Warnf("dropped %d byte frame of type 0x%02x: %v", len(f), f[0], err)
	}
}
