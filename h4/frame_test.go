package h4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func collect(timeout time.Duration) (*frame, *[][]byte) {
	var got [][]byte
	f := newFrame(timeout, func(b []byte) {
		got = append(got, append([]byte(nil), b...))
	})
	return f, &got
}

func TestFrameSplitReads(t *testing.T) {
	f, got := collect(time.Second)

	f.Assemble([]byte{0x04})
	f.Assemble([]byte{0x0e, 0x04})
	f.Assemble([]byte{0x01, 0x03})
	assert.Empty(t, *got)
	f.Assemble([]byte{0x0c, 0x00})

	assert.Equal(t, [][]byte{{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}}, *got)
	assert.Zero(t, f.resyncs)
}

func TestFrameBackToBack(t *testing.T) {
	f, got := collect(time.Second)

	f.Assemble([]byte{
		0x04, 0x0e, 0x00,
		0x02, 0x40, 0x00, 0x02, 0x00, 0xaa, 0xbb,
		0x04, 0x3e, 0x01, 0x02,
	})

	assert.Equal(t, [][]byte{
		{0x04, 0x0e, 0x00},
		{0x02, 0x40, 0x00, 0x02, 0x00, 0xaa, 0xbb},
		{0x04, 0x3e, 0x01, 0x02},
	}, *got)
}

func TestFrameResync(t *testing.T) {
	f, got := collect(time.Second)

	f.Assemble([]byte{0xff, 0x00})
	assert.Equal(t, 1, f.resyncs)
	f.Assemble([]byte{0x13, 0x37, 0x04, 0x0e, 0x01, 0x55})

	assert.Equal(t, [][]byte{{0x04, 0x0e, 0x01, 0x55}}, *got)
	assert.Equal(t, 2, f.resyncs)
}

func TestFrameTimeout(t *testing.T) {
	f, got := collect(10 * time.Millisecond)

	f.Assemble([]byte{0x04, 0x0e, 0x05, 0x01})
	time.Sleep(20 * time.Millisecond)
	f.Assemble([]byte{0x04, 0x0f, 0x00})

	assert.Equal(t, [][]byte{{0x04, 0x0f, 0x00}}, *got)
	assert.Equal(t, 1, f.resyncs)
}

func TestDiscardable(t *testing.T) {
	assert.True(t, discardable([]byte{0x04, 0x3e, 0x02, 0x02, 0x00}))
	assert.False(t, discardable([]byte{0x04, 0x3e, 0x02, 0x01, 0x00}))
	assert.False(t, discardable([]byte{0x04, 0x0e, 0x02, 0x02, 0x00}))
	assert.False(t, discardable([]byte{0x02, 0x3e, 0x02, 0x02, 0x00}))
}
