// Package filecfg loads the platform configuration file into a ConfigSource.
// The file is a flat mapping of namespace name to configuration set, in JSON
// or YAML depending on the file extension.
package filecfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"gqlreg/types"
)

type Source struct {
	sets map[string]types.ConfigSet
}

func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	var sets map[string]types.ConfigSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &sets)
	default:
		err = json.Unmarshal(raw, &sets)
	}
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &Source{sets: sets}, nil
}

// FromSets wraps pre-built sets. Used by tests and embedders that parse
// configuration themselves.
func FromSets(sets map[string]types.ConfigSet) *Source {
	return &Source{sets: sets}
}

func (s *Source) GetConfigSet(namespace string) (types.ConfigSet, bool) {
	set, ok := s.sets[namespace]
	return set, ok
}
