package sliceops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwap(t *testing.T) {
	for _, tc := range []struct {
		in, want []byte
	}{
		{nil, nil},
		{[]byte{1}, []byte{1}},
		{[]byte{1, 2}, []byte{2, 1}},
		{[]byte{1, 2, 3}, []byte{3, 2, 1}},
		{[]byte{1, 2, 3, 4, 5, 6}, []byte{6, 5, 4, 3, 2, 1}},
	} {
		b := append([]byte(nil), tc.in...)
		Swap(b)
		assert.Equal(t, tc.want, b)
	}
}

func TestSwapBufCopies(t *testing.T) {
	in := []byte{1, 2, 3}
	out := SwapBuf(in)
	assert.Equal(t, []byte{3, 2, 1}, out)
	assert.Equal(t, []byte{1, 2, 3}, in)
}
