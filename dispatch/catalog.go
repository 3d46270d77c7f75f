package dispatch

import (
	"errors"
	"fmt"
	"os"

	"github.com/MrEthical07/goGate/permission"
	"gopkg.in/yaml.v3"
)

// CatalogEntry describes one named SQL operation.
type CatalogEntry struct {
	Area   string   `yaml:"area"`
	Object string   `yaml:"object"`
	Method string   `yaml:"method"`
	Params []string `yaml:"params"`
	// Exec marks statements that return no rows.
	Exec bool   `yaml:"exec"`
	SQL  string `yaml:"sql"`
}

// Key returns the entry's operation key.
func (e CatalogEntry) Key() permission.Key {
	return permission.Key{Area: e.Area, Object: e.Object, Method: e.Method}
}

// Catalog is the YAML document listing named SQL operations:
//
//	operations:
//	  - area: sales
//	    object: order
//	    method: list
//	    params: [customer_id]
//	    sql: SELECT id, total FROM orders WHERE customer_id = $1
type Catalog struct {
	Operations []CatalogEntry `yaml:"operations"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[permission.Key]struct{}, len(c.Operations))
	for i, entry := range c.Operations {
		key := entry.Key()
		if !key.Valid() {
			return nil, fmt.Errorf("catalog entry %d: invalid key %q", i, key.String())
		}
		if entry.SQL == "" {
			return nil, fmt.Errorf("catalog entry %s: sql is empty", key)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("catalog entry %s: duplicate", key)
		}
		seen[key] = struct{}{}
	}
	return &c, nil
}

// LoadCatalogFile reads and parses a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}
