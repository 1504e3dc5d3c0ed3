package ports

import "gqlreg/types"

// ConfigSource exposes named configuration sets already parsed from a
// platform config file.
type ConfigSource interface {
	// GetConfigSet returns the set for a namespace. MUST return ok=false for
	// unknown namespaces, never an error or a panic.
	GetConfigSet(namespace string) (set types.ConfigSet, ok bool)
}
