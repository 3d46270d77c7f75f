package permission

// Mask is a fixed-width bitset stored as little-endian 64-bit words.
type Mask struct {
	words []uint64
}

// NewMask allocates a zeroed mask of width bits. Width must be a multiple of 64.
func NewMask(width int) Mask {
	return Mask{words: make([]uint64, width/64)}
}

// Width returns the number of addressable bits.
func (m Mask) Width() int {
	return len(m.words) * 64
}

// Set turns bit on. Out-of-range bits are ignored.
func (m Mask) Set(bit int) {
	if bit < 0 || bit >= m.Width() {
		return
	}
	m.words[bit/64] |= 1 << (uint(bit) % 64)
}

// Clear turns bit off. Out-of-range bits are ignored.
func (m Mask) Clear(bit int) {
	if bit < 0 || bit >= m.Width() {
		return
	}
	m.words[bit/64] &^= 1 << (uint(bit) % 64)
}

// Has reports whether bit is on. Out-of-range bits are never set.
func (m Mask) Has(bit int) bool {
	if bit < 0 || bit >= m.Width() {
		return false
	}
	return m.words[bit/64]&(1<<(uint(bit)%64)) != 0
}

// Empty reports whether no bit is on.
func (m Mask) Empty() bool {
	for _, w := range m.words {
		if w != 0 {
			return false
		}
	}
	return true
}
