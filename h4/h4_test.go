package h4

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/buf"
	"github.com/rigado/blecore/osdep"
	_ "github.com/rigado/blecore/osdep/posix"
	"github.com/rigado/blecore/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var advReport = []byte{0x04, 0x3e, 0x03, 0x02, 0x01, 0x00}

func newIngress(t *testing.T, r io.Reader, count, size int, opts ...Option) (*Ingress, *buf.Pool, *queue.FIFO[buf.Buf, *buf.Buf]) {
	t.Helper()
	p, err := buf.NewFixedPool("h4-"+t.Name(), count, size)
	require.NoError(t, err)
	out := queue.NewFIFO[buf.Buf]()
	i, err := NewIngress(r, p, out, opts...)
	require.NoError(t, err)
	return i, p, out
}

func drain(out *queue.FIFO[buf.Buf, *buf.Buf]) [][]byte {
	var got [][]byte
	for b := out.Get(osdep.NoWait); b != nil; b = out.Get(osdep.NoWait) {
		d := make([]byte, b.FragsLen())
		buf.Linearize(d, b, 0, len(d))
		got = append(got, d)
		b.Unref()
	}
	return got
}

func TestIngressDelivers(t *testing.T) {
	cmdComplete := []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}
	in := append(append([]byte{0x00}, cmdComplete...), advReport...)

	i, p, out := newIngress(t, bytes.NewReader(in), 4, 32)
	require.NoError(t, i.Run(context.Background()))

	assert.Equal(t, [][]byte{cmdComplete, advReport}, drain(out))
	assert.Equal(t, Stats{Frames: 2, Resyncs: 1}, i.Stats())
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestIngressFragmentsLargeFrame(t *testing.T) {
	acl := []byte{0x02, 0x40, 0x00, 0x0a, 0x00}
	for n := 0; n < 10; n++ {
		acl = append(acl, byte(n))
	}

	i, _, out := newIngress(t, bytes.NewReader(acl), 4, 8)
	require.NoError(t, i.Run(context.Background()))

	b := out.Get(osdep.NoWait)
	require.NotNil(t, b)
	require.NotNil(t, b.Frags())
	d := make([]byte, b.FragsLen())
	buf.Linearize(d, b, 0, len(d))
	assert.Equal(t, acl, d)
	b.Unref()
}

func TestIngressDropsOnExhaustion(t *testing.T) {
	var in []byte
	for n := 0; n < 20; n++ {
		in = append(in, advReport...)
	}

	i, p, out := newIngress(t, bytes.NewReader(in), 2, 16)
	start := time.Now()
	require.NoError(t, i.Run(context.Background()))

	// discardable frames never wait for a buffer
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	s := i.Stats()
	assert.EqualValues(t, 2, s.Frames)
	assert.EqualValues(t, 18, s.Dropped)
	assert.Len(t, drain(out), 2)
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestIngressWaitsForNonDiscardable(t *testing.T) {
	in := []byte{0x04, 0x0e, 0x00, 0x04, 0x0e, 0x00}

	i, _, out := newIngress(t, bytes.NewReader(in), 1, 16, OptAllocTimeout(osdep.Millis(30)))
	start := time.Now()
	require.NoError(t, i.Run(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.EqualValues(t, 1, i.Stats().Dropped)
	assert.Len(t, drain(out), 1)
}

func TestIngressClose(t *testing.T) {
	r, w := io.Pipe()
	i, _, out := newIngress(t, r, 2, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- i.Run(ctx) }()

	_, err := w.Write([]byte{0x04, 0x0e, 0x00})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !out.IsEmpty() }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.NoError(t, i.Close())
	drain(out)
}

func TestNewIngressErrors(t *testing.T) {
	_, err := NewIngress(nil, nil, nil)
	assert.True(t, errors.Is(err, blecore.EINVAL))

	p, err := buf.NewFixedPool("h4-"+t.Name(), 1, 8)
	require.NoError(t, err)
	_, err = NewIngress(bytes.NewReader(nil), p, queue.NewFIFO[buf.Buf](), OptFrameTimeout(0))
	assert.True(t, errors.Is(err, blecore.EINVAL))
}
