package types

import "time"

// Well-known configuration namespaces. The platform config file is a mapping
// of namespace name to configuration set; DefaultServiceNamespace is the API
// backend used when a caller does not name one.
const (
	DefaultServiceNamespace = "api"
	IdentityNamespace       = "auth"
	CTLogNamespace          = "ctlog"
)

// Field keys inside a configuration set.
const (
	FieldRegion     = "region"
	FieldEndpoint   = "endpoint"
	FieldPoolID     = "pool_id"
	FieldClientID   = "client_id"
	FieldLogListURL = "log_list_url"
	FieldCacheDir   = "cache_dir"
	FieldMaxAge     = "max_age_seconds"
)

const (
	// DefaultLogListURL is the public certificate-transparency log list.
	DefaultLogListURL = "https://www.gstatic.com/ct/log_list/v3/log_list.json"

	// DefaultLogListMaxAge bounds how stale a cached log list may be before
	// it is re-fetched. The public list is versioned roughly weekly.
	DefaultLogListMaxAge = 7 * 24 * time.Hour
)

// ConfigSet is one named section of the platform configuration, already
// parsed. Values are whatever the file contained; required fields must be
// non-empty strings.
type ConfigSet map[string]any

// ServiceConfig describes one GraphQL API backend.
type ServiceConfig struct {
	Region   string
	Endpoint string
}

// IdentityConfig describes the identity service (user pool) backing token
// issuance for the API backends.
type IdentityConfig struct {
	Region   string
	PoolID   string
	ClientID string
}

// CTLogConfig parameterizes the certificate-transparency verifier.
// All fields are optional; zero values select the public defaults.
type CTLogConfig struct {
	LogListURL string
	CacheDir   string
	MaxAge     time.Duration
}

// requiredString extracts a field that must be present as a non-empty string.
// The namespace is only used for the error message.
func (s ConfigSet) requiredString(namespace, field string) (string, error) {
	v, ok := s[field]
	if !ok {
		return "", Err(ErrConfigMissing, nil, "%s.%s is required", namespace, field)
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", Err(ErrConfigMissing, nil, "%s.%s must be a non-empty string", namespace, field)
	}
	return str, nil
}

// ServiceConfigFrom validates and extracts the service fields of a set.
func ServiceConfigFrom(namespace string, set ConfigSet) (ServiceConfig, error) {
	region, err := set.requiredString(namespace, FieldRegion)
	if err != nil {
		return ServiceConfig{}, err
	}
	endpoint, err := set.requiredString(namespace, FieldEndpoint)
	if err != nil {
		return ServiceConfig{}, err
	}
	return ServiceConfig{Region: region, Endpoint: endpoint}, nil
}

// IdentityConfigFrom validates and extracts the identity-service fields.
func IdentityConfigFrom(set ConfigSet) (IdentityConfig, error) {
	region, err := set.requiredString(IdentityNamespace, FieldRegion)
	if err != nil {
		return IdentityConfig{}, err
	}
	poolID, err := set.requiredString(IdentityNamespace, FieldPoolID)
	if err != nil {
		return IdentityConfig{}, err
	}
	clientID, err := set.requiredString(IdentityNamespace, FieldClientID)
	if err != nil {
		return IdentityConfig{}, err
	}
	return IdentityConfig{Region: region, PoolID: poolID, ClientID: clientID}, nil
}

// CTLogConfigFrom extracts the optional ctlog set. A nil set yields the
// public defaults. Unlike the service sets, nothing here is required.
func CTLogConfigFrom(set ConfigSet) CTLogConfig {
	cfg := CTLogConfig{
		LogListURL: DefaultLogListURL,
		MaxAge:     DefaultLogListMaxAge,
	}
	if set == nil {
		return cfg
	}
	if v, ok := set[FieldLogListURL].(string); ok && v != "" {
		cfg.LogListURL = v
	}
	if v, ok := set[FieldCacheDir].(string); ok && v != "" {
		cfg.CacheDir = v
	}
	if secs, ok := numericField(set[FieldMaxAge]); ok && secs > 0 {
		cfg.MaxAge = time.Duration(secs) * time.Second
	}
	return cfg
}

// numericField tolerates the types JSON and YAML decoders produce for numbers.
func numericField(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
