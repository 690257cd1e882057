package buf

import (
	"encoding/binary"

	"github.com/rigado/blecore/sliceops"
)

// putLE writes the low len(b) bytes of v in little endian order.
func putLE(b []byte, v uint64) {
	switch len(b) {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	default:
		for i := range b {
			b[i] = byte(v >> (8 * uint(i)))
		}
	}
}

func putBE(b []byte, v uint64) {
	putLE(b, v)
	sliceops.Swap(b)
}

func getLE(b []byte) uint64 {
	switch len(b) {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// getBE reads a reversed copy, so b itself is left alone.
func getBE(b []byte) uint64 {
	return getLE(sliceops.SwapBuf(b))
}
