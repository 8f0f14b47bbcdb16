package skills

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Bundle is the content of an external plugin bundle. A bundle exposes either
// a named collection of skills or a single default skill.
type Bundle struct {
	Name    string
	Skills  []*Skill
	Default *Skill
}

// All returns the skills carried by the bundle.
func (b *Bundle) All() []*Skill {
	if b == nil {
		return nil
	}
	if len(b.Skills) > 0 {
		return b.Skills
	}
	if b.Default != nil {
		return []*Skill{b.Default}
	}
	return nil
}

// PluginSource resolves bundle names to bundles. Lookup returns (nil, nil)
// when the bundle is not installed and an error when it exists but could
// not be read.
type PluginSource interface {
	Lookup(ctx context.Context, name string) (*Bundle, error)
}

// SourceFunc adapts a function to PluginSource.
type SourceFunc func(ctx context.Context, name string) (*Bundle, error)

// Lookup calls f(ctx, name).
func (f SourceFunc) Lookup(ctx context.Context, name string) (*Bundle, error) {
	return f(ctx, name)
}

// StaticSource serves bundles compiled into the binary.
type StaticSource struct {
	mu      sync.RWMutex
	bundles map[string]*Bundle
}

// NewStaticSource creates a source over the given bundles keyed by Bundle.Name
func NewStaticSource(bundles ...*Bundle) *StaticSource {
	s := &StaticSource{bundles: make(map[string]*Bundle)}
	for _, b := range bundles {
		s.Add(b)
	}
	return s
}

// Add makes b available under b.Name
func (s *StaticSource) Add(b *Bundle) {
	if b == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[b.Name] = b
}

// Lookup implements PluginSource
func (s *StaticSource) Lookup(_ context.Context, name string) (*Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundles[name], nil
}

// ChainSource tries each source in order and returns the first bundle found.
// A failing source is logged and skipped; its error is returned only when no
// later source has the bundle.
type ChainSource struct {
	sources []PluginSource
	log     *logrus.Logger
}

// NewChainSource creates a chain over sources, skipping nil entries
func NewChainSource(log *logrus.Logger, sources ...PluginSource) *ChainSource {
	if log == nil {
		log = logrus.New()
	}
	c := &ChainSource{log: log}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Lookup implements PluginSource
func (c *ChainSource) Lookup(ctx context.Context, name string) (*Bundle, error) {
	var firstErr error
	for _, src := range c.sources {
		bundle, err := src.Lookup(ctx, name)
		if err != nil {
			c.log.WithError(err).WithField("bundle", name).Warn("Plugin source failed, trying next")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if bundle != nil {
			return bundle, nil
		}
	}
	return nil, firstErr
}
