package skills

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"plugin"

	"github.com/sirupsen/logrus"
)

const (
	// SkillsSymbol is the exported variable holding a named collection of skills
	SkillsSymbol = "Skills"
	// SkillSymbol is the exported variable holding a single default skill
	SkillSymbol = "Skill"
)

type symbolLookup func(name string) (plugin.Symbol, error)

// SharedObjectSource resolves bundles from Go plugins built with
// -buildmode=plugin and installed as <dir>/<bundle>.so.
type SharedObjectSource struct {
	dir  string
	open func(path string) (symbolLookup, error)
	log  *logrus.Logger
}

// NewSharedObjectSource creates a source over dir
func NewSharedObjectSource(dir string, log *logrus.Logger) *SharedObjectSource {
	if log == nil {
		log = logrus.New()
	}
	return &SharedObjectSource{
		dir:  dir,
		open: openPlugin,
		log:  log,
	}
}

func openPlugin(path string) (symbolLookup, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p.Lookup, nil
}

// Lookup implements PluginSource
func (s *SharedObjectSource) Lookup(_ context.Context, name string) (*Bundle, error) {
	if !IsValidBundleName(name) {
		return nil, fmt.Errorf("invalid bundle name: %q", name)
	}

	path := filepath.Join(s.dir, name+".so")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		s.log.Debugf("Shared object bundle does not exist: %s", path)
		return nil, nil
	}

	lookup, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	return bundleFromSymbols(name, lookup)
}

func bundleFromSymbols(name string, lookup symbolLookup) (*Bundle, error) {
	if sym, err := lookup(SkillsSymbol); err == nil {
		switch v := sym.(type) {
		case *[]*Skill:
			return &Bundle{Name: name, Skills: *v}, nil
		default:
			return nil, fmt.Errorf("bundle %s: symbol %s has unexpected type %T", name, SkillsSymbol, sym)
		}
	}

	sym, err := lookup(SkillSymbol)
	if err != nil {
		return nil, fmt.Errorf("bundle %s exports neither %s nor %s", name, SkillsSymbol, SkillSymbol)
	}

	switch v := sym.(type) {
	case *Skill:
		return &Bundle{Name: name, Default: v}, nil
	case **Skill:
		if *v == nil {
			return nil, fmt.Errorf("bundle %s: symbol %s is nil", name, SkillSymbol)
		}
		return &Bundle{Name: name, Default: *v}, nil
	default:
		return nil, fmt.Errorf("bundle %s: symbol %s has unexpected type %T", name, SkillSymbol, sym)
	}
}
