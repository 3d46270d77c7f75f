package permission

import (
	"errors"
	"strings"
)

// Key identifies an invokable operation.
type Key struct {
	Area   string
	Object string
	Method string
}

// String renders the key as "area.object.method".
func (k Key) String() string {
	return k.Area + "." + k.Object + "." + k.Method
}

// Valid reports whether every component is non-empty and free of separators.
func (k Key) Valid() bool {
	return validComponent(k.Area) && validComponent(k.Object) && validComponent(k.Method)
}

// ParseKey parses the "area.object.method" form.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Key{}, errors.New("operation key must be area.object.method: " + s)
	}
	k := Key{Area: parts[0], Object: parts[1], Method: parts[2]}
	if !k.Valid() {
		return Key{}, errors.New("operation key has an empty or invalid component: " + s)
	}
	return k, nil
}

func validComponent(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ". \t\r\n")
}
