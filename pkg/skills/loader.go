package skills

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPremiumBundle is the well-known name of the premium skill bundle
const DefaultPremiumBundle = "premium-skills"

// ErrBundleNotLoaded is returned when unloading a bundle that was never attempted
var ErrBundleNotLoaded = errors.New("bundle not loaded")

// Loader registers skills from plugin bundles into a Registry. Missing or
// broken bundles are never fatal: the process keeps running with the
// skills it already has.
type Loader struct {
	registry      *Registry
	source        PluginSource
	defaultBundle string
	metrics       *Metrics

	mu        sync.Mutex
	attempted map[string][]string
	group     singleflight.Group

	log *logrus.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithDefaultBundle overrides the name used by LoadDefaultPremiumBundle
func WithDefaultBundle(name string) LoaderOption {
	return func(l *Loader) {
		if name != "" {
			l.defaultBundle = name
		}
	}
}

// WithMetrics records load outcomes in m
func WithMetrics(m *Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader that resolves bundles through source
func NewLoader(registry *Registry, source PluginSource, log *logrus.Logger, opts ...LoaderOption) *Loader {
	if log == nil {
		log = logrus.New()
	}

	l := &Loader{
		registry:      registry,
		source:        source,
		defaultBundle: DefaultPremiumBundle,
		attempted:     make(map[string][]string),
		log:           log,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoadFromBundle loads the named bundle and returns the IDs of skills it
// newly registered. A bundle that is absent or fails to load yields an empty
// result and no error. Each name is attempted at most once; later calls are
// no-ops. Errors from skill load hooks are returned.
//
// Concurrent callers for the same name share one load, which runs detached
// from the first caller's cancellation so followers are not failed by it.
func (l *Loader) LoadFromBundle(ctx context.Context, name string) ([]string, error) {
	if l.wasAttempted(name) {
		l.metrics.recordLoad(LoadResultCached)
		return nil, nil
	}

	v, err, _ := l.group.Do(name, func() (interface{}, error) {
		l.mu.Lock()
		if _, done := l.attempted[name]; done {
			l.mu.Unlock()
			return []string(nil), nil
		}
		l.attempted[name] = nil
		l.mu.Unlock()

		return l.load(context.WithoutCancel(ctx), name)
	})

	ids, _ := v.([]string)
	return ids, err
}

// LoadDefaultPremiumBundle loads the configured premium bundle
func (l *Loader) LoadDefaultPremiumBundle(ctx context.Context) ([]string, error) {
	return l.LoadFromBundle(ctx, l.defaultBundle)
}

// LoadFromBundles loads several bundles concurrently and maps each name to
// the skill IDs it newly registered. A failing bundle does not cancel its
// siblings; the first hook error is returned after every load finished.
func (l *Loader) LoadFromBundles(ctx context.Context, names []string) (map[string][]string, error) {
	results := make(map[string][]string, len(names))
	var mu sync.Mutex

	var g errgroup.Group
	for _, name := range names {
		name := name
		g.Go(func() error {
			ids, err := l.LoadFromBundle(ctx, name)
			mu.Lock()
			results[name] = ids
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	return results, err
}

// LoadInstalledBundle is used when a bundle appears after a previous attempt.
// An earlier attempt that registered nothing is cleared before loading again.
func (l *Loader) LoadInstalledBundle(ctx context.Context, name string) ([]string, error) {
	l.mu.Lock()
	if ids, done := l.attempted[name]; done && len(ids) == 0 {
		delete(l.attempted, name)
	}
	l.mu.Unlock()

	return l.LoadFromBundle(ctx, name)
}

// IsBundleAvailable reports whether the source can resolve name to a
// non-empty bundle. Nothing is registered.
func (l *Loader) IsBundleAvailable(ctx context.Context, name string) bool {
	bundle, err := l.lookup(ctx, name)
	if err != nil {
		l.log.WithError(err).WithField("bundle", name).Debug("Bundle availability check failed")
		return false
	}
	return len(bundle.All()) > 0
}

// ListLoadedBundles returns the names of every bundle a load was attempted for
func (l *Loader) ListLoadedBundles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.attempted))
	for name := range l.attempted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterStatic registers compiled-in skills with the same hook semantics
// as bundle loading.
func (l *Loader) RegisterStatic(ctx context.Context, skills ...*Skill) ([]string, error) {
	return l.registerAll(ctx, "static", skills)
}

// UnloadBundle unregisters the skills a bundle registered and forgets the
// attempt so the bundle can be loaded again.
func (l *Loader) UnloadBundle(ctx context.Context, name string) error {
	l.mu.Lock()
	ids, exists := l.attempted[name]
	l.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrBundleNotLoaded, name)
	}

	for _, id := range ids {
		if _, err := l.registry.Unregister(ctx, id); err != nil {
			return fmt.Errorf("failed to unload bundle %s: %w", name, err)
		}
	}

	l.mu.Lock()
	delete(l.attempted, name)
	l.mu.Unlock()

	l.metrics.setRegistered(l.registry.Count())
	l.log.WithField("bundle", name).Infof("Unloaded bundle with %d skills", len(ids))
	return nil
}

func (l *Loader) wasAttempted(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, done := l.attempted[name]
	return done
}

func (l *Loader) load(ctx context.Context, name string) ([]string, error) {
	log := l.log.WithField("bundle", name)

	bundle, err := l.lookup(ctx, name)
	if err != nil {
		log.WithError(err).Warn("Failed to load plugin bundle")
		l.metrics.recordLoad(LoadResultFailed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// interrupted lookups are retried on the next call
			l.mu.Lock()
			delete(l.attempted, name)
			l.mu.Unlock()
		}
		return nil, nil
	}
	if bundle == nil {
		log.Debug("Plugin bundle not installed")
		l.metrics.recordLoad(LoadResultAbsent)
		return nil, nil
	}

	ids, err := l.registerAll(ctx, name, bundle.All())

	l.mu.Lock()
	l.attempted[name] = ids
	l.mu.Unlock()

	if err != nil {
		l.metrics.recordLoad(LoadResultFailed)
		return ids, err
	}

	l.metrics.recordLoad(LoadResultLoaded)
	return ids, nil
}

func (l *Loader) lookup(ctx context.Context, name string) (bundle *Bundle, err error) {
	if l.source == nil {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = fmt.Errorf("panic in plugin source: %v", r)
		}
	}()

	return l.source.Lookup(ctx, name)
}

func (l *Loader) registerAll(ctx context.Context, origin string, skills []*Skill) ([]string, error) {
	var ids []string
	defer func() { l.metrics.setRegistered(l.registry.Count()) }()

	for _, skill := range skills {
		if skill == nil || skill.ID == "" {
			l.log.WithField("bundle", origin).Warn("Skipping skill without ID")
			continue
		}
		if l.registry.Has(skill.ID) {
			l.log.WithField("skill_id", skill.ID).Debug("Skill already registered, skipping")
			continue
		}

		if skill.OnLoad != nil {
			if err := skill.OnLoad(ctx); err != nil {
				return ids, fmt.Errorf("failed to load skill %s from %s: %w", skill.ID, origin, err)
			}
		}

		if err := l.registry.Register(skill); err != nil {
			return ids, err
		}
		ids = append(ids, skill.ID)

		l.log.Infof("Loaded skill: %s v%s (%s)", skill.ID, skill.Version, origin)
	}

	return ids, nil
}
