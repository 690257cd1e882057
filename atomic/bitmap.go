package atomic

// Bitmap is a flat array of words indexed by bit position.
type Bitmap []Word

// NewBitmap returns a bitmap able to hold bits bits.
func NewBitmap(bits int) Bitmap {
	if bits <= 0 {
		return nil
	}
	return make(Bitmap, (bits+WordBits-1)/WordBits)
}

func (b Bitmap) word(bit int) (*Word, int) {
	if bit < 0 || bit/WordBits >= len(b) {
		return nil, 0
	}
	return &b[bit/WordBits], bit % WordBits
}

// Len is the bit capacity.
func (b Bitmap) Len() int {
	return len(b) * WordBits
}

func (b Bitmap) TestBit(bit int) bool {
	w, i := b.word(bit)
	return w != nil && w.TestBit(i)
}

func (b Bitmap) SetBit(bit int) {
	if w, i := b.word(bit); w != nil {
		w.SetBit(i)
	}
}

func (b Bitmap) ClearBit(bit int) {
	if w, i := b.word(bit); w != nil {
		w.ClearBit(i)
	}
}

func (b Bitmap) SetBitTo(bit int, val bool) {
	if w, i := b.word(bit); w != nil {
		w.SetBitTo(i, val)
	}
}

func (b Bitmap) TestAndSetBit(bit int) bool {
	w, i := b.word(bit)
	return w != nil && w.TestAndSetBit(i)
}

func (b Bitmap) TestAndClearBit(bit int) bool {
	w, i := b.word(bit)
	return w != nil && w.TestAndClearBit(i)
}

// Clear zeroes every bit.
func (b Bitmap) Clear() {
	for i := range b {
		b[i].Set(0)
	}
}
