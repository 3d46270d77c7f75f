package permission

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GrantDocument is the YAML form of a grant set:
//
//	root: [admin]
//	profiles:
//	  seller:
//	    - sales.order.create
//	    - sales.order.list
type GrantDocument struct {
	Root     []string            `yaml:"root"`
	Profiles map[string][]string `yaml:"profiles"`
}

// ParseGrants decodes a YAML grant document.
func ParseGrants(data []byte) (*GrantDocument, error) {
	var doc GrantDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse grants: %w", err)
	}
	return &doc, nil
}

// LoadGrantsFile reads and decodes a YAML grant document from path.
func LoadGrantsFile(path string) (*GrantDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grants: %w", err)
	}
	return ParseGrants(data)
}

// Grants flattens the document into profile/key pairs, sorted by profile.
func (d *GrantDocument) Grants() ([]Grant, error) {
	profiles := make([]string, 0, len(d.Profiles))
	for name := range d.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)

	var out []Grant
	for _, profile := range profiles {
		for _, raw := range d.Profiles[profile] {
			key, err := ParseKey(raw)
			if err != nil {
				return nil, fmt.Errorf("profile %q: %w", profile, err)
			}
			out = append(out, Grant{Profile: profile, Key: key})
		}
	}
	return out, nil
}
