package registry

import "gqlreg/types"

// resolveNamespace collapses a requested namespace onto the default when it
// is configuration-identical to the default service: absent set, no region
// override, or the same (region, endpoint) pair. Collapsing keeps one client
// (and one certificate-transparency verifier) per distinct backend.
func resolveNamespace(requested string, requestedSet, defaultSet types.ConfigSet) string {
	if requested == "" || requested == types.DefaultServiceNamespace {
		return types.DefaultServiceNamespace
	}
	if requestedSet == nil {
		return types.DefaultServiceNamespace
	}
	region, ok := requestedSet[types.FieldRegion].(string)
	if !ok || region == "" {
		return types.DefaultServiceNamespace
	}
	endpoint, _ := requestedSet[types.FieldEndpoint].(string)
	defaultRegion, _ := defaultSet[types.FieldRegion].(string)
	defaultEndpoint, _ := defaultSet[types.FieldEndpoint].(string)
	if region == defaultRegion && endpoint == defaultEndpoint {
		return types.DefaultServiceNamespace
	}
	return requested
}
