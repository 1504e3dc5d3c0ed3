// Package registry hands out one configured GraphQL client per backend
// namespace and identity, built on first request and reused afterwards.
// Client construction is expensive (TLS setup, auth wiring, transparency
// log list); feature modules share the cached instance instead of paying
// that cost per module.
package registry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"gqlreg/ctverify"
	"gqlreg/ports"
	"gqlreg/transport"
	"gqlreg/types"
)

// clientTimeout bounds each request of a built client. It is baked into the
// client at construction time; the registry itself has no timeout semantics.
const clientTimeout = 30 * time.Second

type cacheKey struct {
	namespace   string
	fingerprint string
}

type entry struct {
	client *graphql.Client
}

// VerifierFactory builds the certificate-transparency verifier for a new
// client. Overridable so tests can substitute a stub.
type VerifierFactory func(cfg types.CTLogConfig, pool http.RoundTripper) ports.CTVerifier

// Registry is the process-wide client cache. Construct one with New at
// process start and pass it to the modules that need clients; all methods
// are safe for concurrent use.
type Registry struct {
	src         ports.ConfigSource
	pool        *http.Transport
	newVerifier VerifierFactory

	mu      sync.Mutex
	entries map[cacheKey]*entry
	logger  *logrus.Logger

	group singleflight.Group
}

type Option func(*Registry)

// WithLogger sets the initial diagnostic logger.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithPool substitutes the shared connection pool.
func WithPool(p *http.Transport) Option {
	return func(r *Registry) { r.pool = p }
}

// WithVerifierFactory substitutes how certificate-transparency verifiers are
// built.
func WithVerifierFactory(f VerifierFactory) Option {
	return func(r *Registry) { r.newVerifier = f }
}

func New(src ports.ConfigSource, opts ...Option) *Registry {
	r := &Registry{
		src:     src,
		pool:    defaultPool(),
		entries: make(map[cacheKey]*entry),
		logger:  logrus.StandardLogger(),
		newVerifier: func(cfg types.CTLogConfig, pool http.RoundTripper) ports.CTVerifier {
			return ctverify.New(cfg, pool)
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func defaultPool() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 8
	return t
}

// GetClient returns the shared client for (namespace, identity), building it
// on first request. An empty namespace selects the default service. A
// namespace that is configuration-identical to the default collapses onto the
// default's cache entry. Concurrent first requests for the same key build
// exactly one client; losers receive the winner's instance.
func (r *Registry) GetClient(ctx context.Context, identity ports.IdentityClient, namespace string) (*graphql.Client, error) {
	if namespace == "" {
		namespace = types.DefaultServiceNamespace
	}
	requestedSet, ok := r.src.GetConfigSet(namespace)
	if !ok {
		requestedSet = nil
	}
	defaultSet, _ := r.src.GetConfigSet(types.DefaultServiceNamespace)
	resolved := resolveNamespace(namespace, requestedSet, defaultSet)
	key := cacheKey{namespace: resolved, fingerprint: identity.Fingerprint()}

	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		r.mu.Unlock()
		return e.client, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(key.namespace+"\x00"+key.fingerprint, func() (any, error) {
		// A previous flight may have stored the entry between our miss and
		// this callback.
		r.mu.Lock()
		if e, ok := r.entries[key]; ok {
			r.mu.Unlock()
			return e.client, nil
		}
		r.mu.Unlock()

		client, err := r.build(ctx, identity, resolved)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.entries[key] = &entry{client: client}
		r.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graphql.Client), nil
}

// build assembles the transport pipeline and the GraphQL client for one
// resolved namespace. Configuration is validated before anything is built so
// a failed call leaves no half-constructed state behind.
func (r *Registry) build(ctx context.Context, identity ports.IdentityClient, resolved string) (*graphql.Client, error) {
	identitySet, ok := r.src.GetConfigSet(types.IdentityNamespace)
	if !ok {
		return nil, types.Err(types.ErrConfigMissing, nil, "config set %q", types.IdentityNamespace)
	}
	if _, err := types.IdentityConfigFrom(identitySet); err != nil {
		return nil, err
	}
	serviceSet, ok := r.src.GetConfigSet(resolved)
	if !ok {
		return nil, types.Err(types.ErrConfigMissing, nil, "config set %q", resolved)
	}
	svc, err := types.ServiceConfigFrom(resolved, serviceSet)
	if err != nil {
		return nil, err
	}
	ctSet, _ := r.src.GetConfigSet(types.CTLogNamespace)
	ctCfg := types.CTLogConfigFrom(ctSet)

	// Pipeline, outermost first: auth header, failure reclassifier, CT
	// check, shared pool. The reclassifier must sit above the CT check so
	// its rejections come back as terminal responses.
	var rt http.RoundTripper = r.pool
	rt = r.newVerifier(ctCfg, r.pool).Wrap(rt)
	rt = transport.NewReclassifier(rt)
	rt = transport.NewAuthToken(identity, rt)

	logger := r.currentLogger()
	client := graphql.NewClient(svc.Endpoint, graphql.WithHTTPClient(&http.Client{
		Transport: rt,
		Timeout:   clientTimeout,
	}))
	client.Log = func(s string) { logger.Debug(s) }

	logger.WithFields(logrus.Fields{
		"namespace": resolved,
		"region":    svc.Region,
		"endpoint":  svc.Endpoint,
	}).Info("graphql client built")
	return client, nil
}

// Reset drops every cached entry; the next GetClient per key rebuilds from
// scratch. Already-handed-out client references stay usable. The shared
// connection pool is untouched.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.entries = make(map[cacheKey]*entry)
	r.mu.Unlock()
}

// ResetConnectionPool evicts idle pooled connections. Cached clients keep
// their identity and keep using the pool; in-flight requests are unaffected.
func (r *Registry) ResetConnectionPool() {
	r.pool.CloseIdleConnections()
}

// SetLogger replaces the diagnostic sink for subsequently built clients.
// Clients already built keep the logger they captured.
func (r *Registry) SetLogger(l *logrus.Logger) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

func (r *Registry) currentLogger() *logrus.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}
