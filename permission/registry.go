package permission

import (
	"errors"
	"sync"
)

// Registry maps operation keys to bit positions within a mask.
// Supports widths of 64, 128, 256, or 512 bits.
type Registry struct {
	maxBits      int
	rootReserved bool
	rootBit      int

	mu       sync.RWMutex
	keyToBit map[Key]int
	bitToKey map[int]Key
	frozen   bool
}

// NewRegistry creates a [Registry]. maxBits selects the mask width
// (64/128/256/512); rootReserved reserves the highest bit for a root profile.
func NewRegistry(maxBits int, rootReserved bool) (*Registry, error) {
	if maxBits != 64 && maxBits != 128 && maxBits != 256 && maxBits != 512 {
		return nil, errors.New("invalid maxBits")
	}

	r := &Registry{
		maxBits:      maxBits,
		rootReserved: rootReserved,
		rootBit:      -1,
		keyToBit:     make(map[Key]int),
		bitToKey:     make(map[int]Key),
	}

	if rootReserved {
		r.rootBit = maxBits - 1
	}

	return r, nil
}

// Register assigns the next available bit to key and returns it.
// Must be called before [Registry.Freeze].
func (r *Registry) Register(key Key) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}

	if !key.Valid() {
		return -1, errors.New("operation key is invalid: " + key.String())
	}

	if _, exists := r.keyToBit[key]; exists {
		return -1, errors.New("operation already registered: " + key.String())
	}

	nextBit := len(r.keyToBit)

	if r.rootReserved && nextBit >= r.rootBit {
		return -1, errors.New("operation limit exceeded (root bit reserved)")
	}

	if !r.rootReserved && nextBit >= r.maxBits {
		return -1, errors.New("operation limit exceeded")
	}

	r.keyToBit[key] = nextBit
	r.bitToKey[nextBit] = key

	return nextBit, nil
}

// Bit returns the bit index for key, or false if not registered.
func (r *Registry) Bit(key Key) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.keyToBit[key]
	return bit, ok
}

// Key returns the key assigned to bit, or false if unassigned.
func (r *Registry) Key(bit int) (Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.bitToKey[bit]
	return key, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether [Registry.Freeze] has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Count returns the number of registered keys.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keyToBit)
}

// MaxBits returns the mask width.
func (r *Registry) MaxBits() int {
	return r.maxBits
}

// RootBit returns the reserved root bit, or false if reservation is disabled.
func (r *Registry) RootBit() (int, bool) {
	if !r.rootReserved {
		return -1, false
	}
	return r.rootBit, true
}
