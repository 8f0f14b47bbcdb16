package skills

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// ManifestFile is the file name a bundle directory must contain
const ManifestFile = "bundle.yaml"

var (
	bundleNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	skillIDRegex    = regexp.MustCompile(`^[a-z0-9]+(\.[a-z0-9-]+)+$`)
)

// BundleManifest is the declarative form of a plugin bundle
type BundleManifest struct {
	Name   string          `yaml:"name"`
	Skills []SkillManifest `yaml:"skills"`
}

// SkillManifest declares one skill inside a bundle manifest. Extensions map
// an extension point name to the static payload returned by its handler.
type SkillManifest struct {
	ID          string                            `yaml:"id"`
	Name        string                            `yaml:"name"`
	Version     string                            `yaml:"version"`
	Description string                            `yaml:"description"`
	FeatureType string                            `yaml:"feature_type"`
	Premium     bool                              `yaml:"premium"`
	Extensions  map[string]map[string]interface{} `yaml:"extensions"`
	Templates   []Template                        `yaml:"templates"`
}

// ParseBundleManifest decodes a bundle manifest
func ParseBundleManifest(data []byte) (*BundleManifest, error) {
	var manifest BundleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// LoadBundleManifest reads and decodes a manifest file
func LoadBundleManifest(path string) (*BundleManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseBundleManifest(data)
}

// ValidateBundleManifest performs basic validation on a bundle manifest
func ValidateBundleManifest(m *BundleManifest) []ValidationError {
	var errs []ValidationError

	if m.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "Bundle name is required"})
	} else if !IsValidBundleName(m.Name) {
		errs = append(errs, ValidationError{Field: "name", Message: fmt.Sprintf("Invalid bundle name: %s", m.Name)})
	}

	if len(m.Skills) == 0 {
		errs = append(errs, ValidationError{Field: "skills", Message: "At least one skill is required"})
	}

	seen := make(map[string]bool)
	for i, s := range m.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		switch {
		case s.ID == "":
			errs = append(errs, ValidationError{Field: field + ".id", Message: "Skill ID is required"})
		case !skillIDRegex.MatchString(s.ID):
			errs = append(errs, ValidationError{Field: field + ".id", Message: fmt.Sprintf("Skill ID must be reverse-domain: %s", s.ID)})
		case seen[s.ID]:
			errs = append(errs, ValidationError{Field: field + ".id", Message: fmt.Sprintf("Duplicate skill ID: %s", s.ID)})
		}
		seen[s.ID] = true

		if s.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "Skill name is required"})
		}
		if s.FeatureType != "" {
			if _, err := features.Parse(s.FeatureType); err != nil {
				errs = append(errs, ValidationError{Field: field + ".feature_type", Message: err.Error()})
			}
		}
		for point := range s.Extensions {
			if _, err := ParseExtensionPoint(point); err != nil {
				errs = append(errs, ValidationError{Field: field + ".extensions", Message: err.Error()})
			}
		}
	}

	return errs
}

// IsValidBundleName reports whether name is safe to use as a path segment or object key
func IsValidBundleName(name string) bool {
	return bundleNameRegex.MatchString(name) && !strings.Contains(name, "..")
}

// ToBundle validates the manifest and converts it into a Bundle whose
// extension handlers return the declared payloads.
func (m *BundleManifest) ToBundle() (*Bundle, error) {
	if verrs := ValidateBundleManifest(m); len(verrs) > 0 {
		return nil, fmt.Errorf("manifest validation failed: %v", verrs)
	}

	bundle := &Bundle{Name: m.Name}
	for _, sm := range m.Skills {
		skill := &Skill{
			ID:          sm.ID,
			Name:        sm.Name,
			Version:     sm.Version,
			Description: sm.Description,
			Premium:     sm.Premium,
			Templates:   sm.Templates,
			Extensions:  make(map[ExtensionPoint]ExtensionHandler, len(sm.Extensions)),
		}
		if sm.FeatureType != "" {
			ft, _ := features.Parse(sm.FeatureType)
			skill.FeatureType = ft
		}
		for name, payload := range sm.Extensions {
			point, _ := ParseExtensionPoint(name)
			skill.Extensions[point] = staticHandler(sm.ID, payload)
		}
		bundle.Skills = append(bundle.Skills, skill)
	}

	return bundle, nil
}

func staticHandler(skillID string, payload map[string]interface{}) ExtensionHandler {
	return HandlerFunc(func(ctx context.Context, req *ExtensionRequest) (*ExtensionResponse, error) {
		return &ExtensionResponse{SkillID: skillID, Kind: "manifest", Data: payload}, nil
	})
}

// ManifestSource resolves bundles from directories laid out as <dir>/<bundle>/bundle.yaml
type ManifestSource struct {
	dirs []string
	log  *logrus.Logger
}

// NewManifestSource creates a source over the given plugin directories
func NewManifestSource(dirs []string, log *logrus.Logger) *ManifestSource {
	if log == nil {
		log = logrus.New()
	}
	return &ManifestSource{dirs: dirs, log: log}
}

// Dirs returns the directories searched by the source
func (s *ManifestSource) Dirs() []string {
	return s.dirs
}

// Lookup implements PluginSource
func (s *ManifestSource) Lookup(_ context.Context, name string) (*Bundle, error) {
	if !IsValidBundleName(name) {
		return nil, fmt.Errorf("invalid bundle name: %q", name)
	}

	for _, dir := range s.dirs {
		path := filepath.Join(dir, name, ManifestFile)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			s.log.Debugf("Bundle manifest does not exist: %s", path)
			continue
		}

		manifest, err := LoadBundleManifest(path)
		if err != nil {
			return nil, err
		}
		if manifest.Name != name {
			return nil, fmt.Errorf("manifest at %s declares bundle %q", path, manifest.Name)
		}
		return manifest.ToBundle()
	}

	return nil, nil
}
