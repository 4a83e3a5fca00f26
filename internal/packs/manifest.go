package packs

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/manthysbr/llmsender/internal/core/domain"
)

// ManifestFile is the expected filename for pack manifests.
const ManifestFile = "pack.yaml"

// Manifest describes a pack: a bundle of named components grouped under one
// namespace. Components reference built-in implementations by key and may
// carry default parameters merged under the task's own configuration.
type Manifest struct {
	Name        string      `yaml:"name"`
	Version     string      `yaml:"version"`
	Description string      `yaml:"description"`
	Components  []Component `yaml:"components"`
}

// Component is a single entry in a pack manifest.
type Component struct {
	Name     string             `yaml:"name"`
	Role     domain.Role        `yaml:"role"`
	Impl     string             `yaml:"impl"`
	Tool     bool               `yaml:"tool"` // exposed as an LLM-callable tool
	Params   map[string]any     `yaml:"params"`
	Requires []RequirementEntry `yaml:"requires"`
}

// RequirementEntry mirrors ports.Requirement in the on-disk schema.
type RequirementEntry struct {
	Env  string `yaml:"env"`
	Key  string `yaml:"key"`
	Hint string `yaml:"hint"`
}

var knownRoles = map[domain.Role]bool{
	domain.RoleContent:  true,
	domain.RoleLLM:      true,
	domain.RoleAction:   true,
	domain.RoleNotifier: true,
	domain.RoleTrigger:  true,
}

// ParseManifest decodes and validates one pack manifest payload.
func ParseManifest(data []byte) (Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, fmt.Errorf("pack: manifest is empty")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("pack: decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate ensures the manifest is well-formed before any component of the
// pack can be resolved.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("pack: name is required")
	}
	if len(m.Components) == 0 {
		return fmt.Errorf("pack %s: at least one component is required", m.Name)
	}
	type key struct {
		role domain.Role
		name string
	}
	seen := make(map[key]bool)
	for _, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("pack %s: component name is required", m.Name)
		}
		if !knownRoles[c.Role] {
			return fmt.Errorf("pack %s: component %s: unknown role %q", m.Name, c.Name, c.Role)
		}
		if c.Impl == "" {
			return fmt.Errorf("pack %s: component %s: impl is required", m.Name, c.Name)
		}
		k := key{c.Role, c.Name}
		if seen[k] {
			return fmt.Errorf("pack %s: duplicate %s component %q", m.Name, c.Role, c.Name)
		}
		seen[k] = true
	}
	return nil
}

// component finds the entry of the requested role by its local name.
func (m Manifest) component(role domain.Role, name string) (Component, bool) {
	for _, c := range m.Components {
		if c.Role == role && c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}
