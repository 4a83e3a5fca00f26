// Package packs resolves pack-qualified plugin names ("twitter.filter_tweets")
// against on-disk manifests. A pack directory holds a pack.yaml manifest whose
// components bind local names to built-in implementations; the manifest is
// scanned once on first resolution and cached for the process lifetime.
package packs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// Loader discovers pack manifests under a root directory and binds their
// components to registered implementations.
type Loader struct {
	logger *slog.Logger
	dir    string

	mu    sync.Mutex
	impls map[string]ports.Factory
	cache map[string]*Manifest // pack name -> parsed manifest, write-once
}

// NewLoader creates a pack loader rooted at dir. Each pack lives in
// dir/<pack>/pack.yaml.
func NewLoader(logger *slog.Logger, dir string) *Loader {
	return &Loader{
		logger: logger,
		dir:    dir,
		impls:  make(map[string]ports.Factory),
		cache:  make(map[string]*Manifest),
	}
}

// RegisterImpl binds an implementation key (e.g. "twitter/fetch_tweets") to
// its factory. Manifest components reference these keys via their impl field.
func (l *Loader) RegisterImpl(key string, f ports.Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.impls[key]; ok {
		l.logger.Warn("pack: duplicate implementation key, keeping first", "key", key)
		return
	}
	l.impls[key] = f
}

// Component resolves a component of the requested role inside the named
// pack and returns a registration whose factory merges the manifest's
// default params under the task-supplied configuration.
func (l *Loader) Component(pack string, role domain.Role, name string) (ports.Registration, error) {
	qualified := pack + domain.PackSeparator + name

	manifest, err := l.manifest(pack)
	if err != nil {
		return ports.Registration{}, &domain.PluginNotFoundError{
			Role: role, Name: qualified,
			Reason: fmt.Sprintf("pack %q not found: %v", pack, err),
		}
	}

	comp, ok := manifest.component(role, name)
	if !ok {
		return ports.Registration{}, &domain.PluginNotFoundError{
			Role: role, Name: qualified,
			Reason: fmt.Sprintf("pack %q has no %s component %q", pack, role, name),
		}
	}

	l.mu.Lock()
	impl, ok := l.impls[comp.Impl]
	l.mu.Unlock()
	if !ok {
		return ports.Registration{}, &domain.PluginNotFoundError{
			Role: role, Name: qualified,
			Reason: fmt.Sprintf("pack %q component %q references unknown implementation %q", pack, name, comp.Impl),
		}
	}

	requires := make([]ports.Requirement, 0, len(comp.Requires))
	for _, r := range comp.Requires {
		requires = append(requires, ports.Requirement{EnvVar: r.Env, ConfigKey: r.Key, Hint: r.Hint})
	}

	defaults := comp.Params
	return ports.Registration{
		Role:     role,
		Name:     qualified,
		Requires: requires,
		New: func(config map[string]any) (any, error) {
			merged := make(map[string]any, len(defaults)+len(config))
			for k, v := range defaults {
				merged[k] = v
			}
			for k, v := range config {
				merged[k] = v
			}
			return impl(merged)
		},
	}, nil
}

// manifest loads and caches the named pack's manifest. The directory is read
// at most once per pack per process.
func (l *Loader) manifest(pack string) (*Manifest, error) {
	l.mu.Lock()
	if m, ok := l.cache[pack]; ok {
		l.mu.Unlock()
		return m, nil
	}
	l.mu.Unlock()

	path := filepath.Join(l.dir, pack, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if m.Name != pack {
		return nil, fmt.Errorf("manifest %s declares name %q, expected %q", path, m.Name, pack)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[pack]; ok {
		return cached, nil
	}
	l.cache[pack] = &m
	l.logger.Info("pack manifest loaded", "pack", pack, "components", len(m.Components))
	return &m, nil
}
