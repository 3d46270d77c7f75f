package permission

import (
	"errors"
	"sort"
	"sync"
)

// Grant binds one profile to one operation key.
type Grant struct {
	Profile string
	Key     Key
}

// Matrix holds the permission mask of every profile.
type Matrix struct {
	registry *Registry

	mu       sync.RWMutex
	profiles map[string]Mask
	frozen   bool
}

// NewMatrix creates an empty matrix over registry.
func NewMatrix(registry *Registry) *Matrix {
	return &Matrix{
		registry: registry,
		profiles: make(map[string]Mask),
	}
}

// Registry returns the key registry backing this matrix.
func (m *Matrix) Registry() *Registry {
	return m.registry
}

// Grant allows profile to invoke key. The key must already be registered.
func (m *Matrix) Grant(profile string, key Key) error {
	bit, ok := m.registry.Bit(key)
	if !ok {
		return errors.New("operation not registered: " + key.String())
	}
	return m.setBit(profile, bit)
}

// GrantRoot gives profile the reserved root bit.
func (m *Matrix) GrantRoot(profile string) error {
	bit, ok := m.registry.RootBit()
	if !ok {
		return errors.New("root bit not reserved")
	}
	return m.setBit(profile, bit)
}

func (m *Matrix) setBit(profile string, bit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.New("permission matrix frozen")
	}
	if profile == "" {
		return errors.New("profile name empty")
	}

	mask, ok := m.profiles[profile]
	if !ok {
		mask = NewMask(m.registry.MaxBits())
		m.profiles[profile] = mask
	}
	mask.Set(bit)
	return nil
}

// Apply grants every entry of grants, stopping at the first failure.
func (m *Matrix) Apply(grants []Grant) error {
	for _, g := range grants {
		if err := m.Grant(g.Profile, g.Key); err != nil {
			return err
		}
	}
	return nil
}

// Freeze prevents further grants.
func (m *Matrix) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = true
}

// IsAllowed reports whether profile may invoke area/object/method. Any unknown
// or empty component yields false.
func (m *Matrix) IsAllowed(profile, area, object, method string) bool {
	return m.Allowed(profile, Key{Area: area, Object: object, Method: method})
}

// Allowed is [Matrix.IsAllowed] over a [Key].
func (m *Matrix) Allowed(profile string, key Key) bool {
	if m == nil || profile == "" || !key.Valid() {
		return false
	}

	bit, ok := m.registry.Bit(key)
	if !ok {
		return false
	}

	m.mu.RLock()
	mask, ok := m.profiles[profile]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	if root, reserved := m.registry.RootBit(); reserved && mask.Has(root) {
		return true
	}
	return mask.Has(bit)
}

// Grants lists the keys profile may invoke, in registration order.
func (m *Matrix) Grants(profile string) []Key {
	m.mu.RLock()
	mask, ok := m.profiles[profile]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	root := false
	if bit, reserved := m.registry.RootBit(); reserved {
		root = mask.Has(bit)
	}

	out := make([]Key, 0)
	for bit := 0; bit < m.registry.Count(); bit++ {
		if !root && !mask.Has(bit) {
			continue
		}
		if key, ok := m.registry.Key(bit); ok {
			out = append(out, key)
		}
	}
	return out
}

// Profiles returns the profiles that hold at least one grant, sorted.
func (m *Matrix) Profiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.profiles))
	for name, mask := range m.profiles {
		if !mask.Empty() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
