package buf

import (
	"github.com/rigado/blecore"
)

// Simple is a cursor over a byte region. The content is Data(); the bytes
// before it are headroom and the bytes after it tailroom. Simple does not
// own its storage and is not safe for concurrent use.
//
// Cursor overruns are contract violations and panic through blecore.Assert.
type Simple struct {
	raw []byte
	off int
	len int
}

// State is a saved cursor position, see Save and Restore.
type State struct {
	Offset uint16
	Len    uint16
}

// NewSimple returns a cursor over a fresh region of size bytes.
func NewSimple(size int) *Simple {
	s := &Simple{}
	s.InitWithData(make([]byte, size))
	s.Init(0)
	return s
}

// Init empties s and reserves head bytes of headroom.
func (s *Simple) Init(head int) {
	blecore.Assert(head <= len(s.raw), "buf: reserve %d beyond size %d", head, len(s.raw))
	s.off = head
	s.len = 0
}

// InitWithData points s at data. All of data is content.
func (s *Simple) InitWithData(data []byte) {
	s.raw = data
	s.off = 0
	s.len = len(data)
}

// Reset empties s and drops any headroom.
func (s *Simple) Reset() {
	s.off = 0
	s.len = 0
}

// Reserve sets the headroom of an empty cursor.
func (s *Simple) Reserve(head int) {
	blecore.Assert(s.len == 0, "buf: reserve on non-empty buffer")
	s.Init(head)
}

// CloneTo copies the cursor state into dst. The storage is shared.
func (s *Simple) CloneTo(dst *Simple) {
	*dst = *s
}

func (s *Simple) Data() []byte {
	return s.raw[s.off : s.off+s.len]
}

// Raw returns the whole storage region.
func (s *Simple) Raw() []byte {
	return s.raw
}

func (s *Simple) Len() int {
	return s.len
}

func (s *Simple) Size() int {
	return len(s.raw)
}

func (s *Simple) Headroom() int {
	return s.off
}

func (s *Simple) Tailroom() int {
	return len(s.raw) - s.off - s.len
}

// MaxLen is the content length reachable without pushing into headroom.
func (s *Simple) MaxLen() int {
	return len(s.raw) - s.off
}

// Tail returns the unused bytes after the content.
func (s *Simple) Tail() []byte {
	return s.raw[s.off+s.len:]
}

func (s *Simple) Save() State {
	return State{Offset: uint16(s.off), Len: uint16(s.len)}
}

func (s *Simple) Restore(st State) {
	blecore.Assert(int(st.Offset)+int(st.Len) <= len(s.raw), "buf: restore beyond size")
	s.off = int(st.Offset)
	s.len = int(st.Len)
}

// Add extends the content by n bytes at the tail and returns them.
func (s *Simple) Add(n int) []byte {
	blecore.Assert(n >= 0 && n <= s.Tailroom(), "buf: add %d exceeds tailroom %d", n, s.Tailroom())
	tail := s.off + s.len
	s.len += n
	return s.raw[tail : tail+n]
}

func (s *Simple) AddMem(p []byte) []byte {
	b := s.Add(len(p))
	copy(b, p)
	return b
}

func (s *Simple) AddU8(v uint8) []byte {
	b := s.Add(1)
	b[0] = v
	return b
}

func (s *Simple) addLE(n int, v uint64) { putLE(s.Add(n), v) }
func (s *Simple) addBE(n int, v uint64) { putBE(s.Add(n), v) }

func (s *Simple) AddLE16(v uint16) { s.addLE(2, uint64(v)) }
func (s *Simple) AddBE16(v uint16) { s.addBE(2, uint64(v)) }
func (s *Simple) AddLE24(v uint32) { s.addLE(3, uint64(v)) }
func (s *Simple) AddBE24(v uint32) { s.addBE(3, uint64(v)) }
func (s *Simple) AddLE32(v uint32) { s.addLE(4, uint64(v)) }
func (s *Simple) AddBE32(v uint32) { s.addBE(4, uint64(v)) }
func (s *Simple) AddLE40(v uint64) { s.addLE(5, v) }
func (s *Simple) AddBE40(v uint64) { s.addBE(5, v) }
func (s *Simple) AddLE48(v uint64) { s.addLE(6, v) }
func (s *Simple) AddBE48(v uint64) { s.addBE(6, v) }
func (s *Simple) AddLE64(v uint64) { s.addLE(8, v) }
func (s *Simple) AddBE64(v uint64) { s.addBE(8, v) }

// RemoveMem shortens the content by n bytes at the tail and returns them.
func (s *Simple) RemoveMem(n int) []byte {
	blecore.Assert(n >= 0 && n <= s.len, "buf: remove %d exceeds length %d", n, s.len)
	s.len -= n
	tail := s.off + s.len
	return s.raw[tail : tail+n]
}

func (s *Simple) RemoveU8() uint8 {
	return s.RemoveMem(1)[0]
}

func (s *Simple) RemoveLE16() uint16 { return uint16(getLE(s.RemoveMem(2))) }
func (s *Simple) RemoveBE16() uint16 { return uint16(getBE(s.RemoveMem(2))) }
func (s *Simple) RemoveLE24() uint32 { return uint32(getLE(s.RemoveMem(3))) }
func (s *Simple) RemoveBE24() uint32 { return uint32(getBE(s.RemoveMem(3))) }
func (s *Simple) RemoveLE32() uint32 { return uint32(getLE(s.RemoveMem(4))) }
func (s *Simple) RemoveBE32() uint32 { return uint32(getBE(s.RemoveMem(4))) }
func (s *Simple) RemoveLE40() uint64 { return getLE(s.RemoveMem(5)) }
func (s *Simple) RemoveBE40() uint64 { return getBE(s.RemoveMem(5)) }
func (s *Simple) RemoveLE48() uint64 { return getLE(s.RemoveMem(6)) }
func (s *Simple) RemoveBE48() uint64 { return getBE(s.RemoveMem(6)) }
func (s *Simple) RemoveLE64() uint64 { return getLE(s.RemoveMem(8)) }
func (s *Simple) RemoveBE64() uint64 { return getBE(s.RemoveMem(8)) }

// Push extends the content by n bytes into the headroom and returns them.
func (s *Simple) Push(n int) []byte {
	blecore.Assert(n >= 0 && n <= s.off, "buf: push %d exceeds headroom %d", n, s.off)
	s.off -= n
	s.len += n
	return s.raw[s.off : s.off+n]
}

func (s *Simple) PushMem(p []byte) []byte {
	b := s.Push(len(p))
	copy(b, p)
	return b
}

func (s *Simple) PushU8(v uint8) {
	s.Push(1)[0] = v
}

func (s *Simple) pushLE(n int, v uint64) { putLE(s.Push(n), v) }
func (s *Simple) pushBE(n int, v uint64) { putBE(s.Push(n), v) }

func (s *Simple) PushLE16(v uint16) { s.pushLE(2, uint64(v)) }
func (s *Simple) PushBE16(v uint16) { s.pushBE(2, uint64(v)) }
func (s *Simple) PushLE24(v uint32) { s.pushLE(3, uint64(v)) }
func (s *Simple) PushBE24(v uint32) { s.pushBE(3, uint64(v)) }
func (s *Simple) PushLE32(v uint32) { s.pushLE(4, uint64(v)) }
func (s *Simple) PushBE32(v uint32) { s.pushBE(4, uint64(v)) }
func (s *Simple) PushLE40(v uint64) { s.pushLE(5, v) }
func (s *Simple) PushBE40(v uint64) { s.pushBE(5, v) }
func (s *Simple) PushLE48(v uint64) { s.pushLE(6, v) }
func (s *Simple) PushBE48(v uint64) { s.pushBE(6, v) }
func (s *Simple) PushLE64(v uint64) { s.pushLE(8, v) }
func (s *Simple) PushBE64(v uint64) { s.pushBE(8, v) }

// Pull consumes n bytes from the head and returns the remaining content.
func (s *Simple) Pull(n int) []byte {
	s.PullMem(n)
	return s.Data()
}

// PullMem consumes n bytes from the head and returns them.
func (s *Simple) PullMem(n int) []byte {
	blecore.Assert(n >= 0 && n <= s.len, "buf: pull %d exceeds length %d", n, s.len)
	head := s.off
	s.off += n
	s.len -= n
	return s.raw[head : head+n]
}

func (s *Simple) PullU8() uint8 {
	return s.PullMem(1)[0]
}

func (s *Simple) PullLE16() uint16 { return uint16(getLE(s.PullMem(2))) }
func (s *Simple) PullBE16() uint16 { return uint16(getBE(s.PullMem(2))) }
func (s *Simple) PullLE24() uint32 { return uint32(getLE(s.PullMem(3))) }
func (s *Simple) PullBE24() uint32 { return uint32(getBE(s.PullMem(3))) }
func (s *Simple) PullLE32() uint32 { return uint32(getLE(s.PullMem(4))) }
func (s *Simple) PullBE32() uint32 { return uint32(getBE(s.PullMem(4))) }
func (s *Simple) PullLE40() uint64 { return getLE(s.PullMem(5)) }
func (s *Simple) PullBE40() uint64 { return getBE(s.PullMem(5)) }
func (s *Simple) PullLE48() uint64 { return getLE(s.PullMem(6)) }
func (s *Simple) PullBE48() uint64 { return getBE(s.PullMem(6)) }
func (s *Simple) PullLE64() uint64 { return getLE(s.PullMem(8)) }
func (s *Simple) PullBE64() uint64 { return getBE(s.PullMem(8)) }
