package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// PackResolver locates a component of a given role inside a named pack and
// binds its factory. Implemented by the packs loader.
type PackResolver interface {
	Component(pack string, role domain.Role, name string) (ports.Registration, error)
}

type registryKey struct {
	role domain.Role
	name string
}

// PluginRegistry maps symbolic plugin names to constructible factories.
// Flat names ("weather") hit the registration table populated at startup;
// pack-qualified names ("twitter.filter_tweets") are delegated to the pack
// resolver. The registry consults the dependency guard before every first
// instantiation of a plugin.
type PluginRegistry struct {
	logger *slog.Logger
	guard  *DependencyGuard
	packs  PackResolver

	mu    sync.RWMutex
	table map[registryKey]ports.Registration
}

// NewPluginRegistry creates an empty registry. packs may be nil when no pack
// directory is configured; pack-qualified names then fail resolution.
func NewPluginRegistry(logger *slog.Logger, guard *DependencyGuard, packs PackResolver) *PluginRegistry {
	return &PluginRegistry{
		logger: logger,
		guard:  guard,
		packs:  packs,
		table:  make(map[registryKey]ports.Registration),
	}
}

// Register adds a flat plugin to the table. Duplicates are not silently
// ignored: first registered wins and the duplicate is logged.
func (r *PluginRegistry) Register(reg ports.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := registryKey{reg.Role, reg.Name}
	if _, ok := r.table[k]; ok {
		r.logger.Warn("duplicate plugin registration, keeping first",
			"role", reg.Role, "name", reg.Name)
		return
	}
	r.table[k] = reg
}

// Resolve maps a role and qualified name to its registration.
func (r *PluginRegistry) Resolve(role domain.Role, name string) (ports.Registration, error) {
	ref := domain.PluginRef{Role: role, Name: name}
	if pack, component, ok := ref.Pack(); ok {
		if r.packs == nil {
			return ports.Registration{}, &domain.PluginNotFoundError{
				Role: role, Name: name,
				Reason: "no pack directory configured",
			}
		}
		return r.packs.Component(pack, role, component)
	}

	r.mu.RLock()
	reg, ok := r.table[registryKey{role, name}]
	r.mu.RUnlock()
	if !ok {
		return ports.Registration{}, &domain.PluginNotFoundError{
			Role: role, Name: name,
			Reason: fmt.Sprintf("no %s plugin registered under this name", role),
		}
	}
	return reg, nil
}

// Instantiate resolves the descriptor and calls its factory with the
// descriptor's configuration, after the dependency guard has cleared it.
func (r *PluginRegistry) Instantiate(ref domain.PluginRef) (any, error) {
	reg, err := r.Resolve(ref.Role, ref.Name)
	if err != nil {
		return nil, err
	}
	if err := r.guard.Check(ref.Name, reg.Requires, ref.Config); err != nil {
		return nil, err
	}
	inst, err := reg.New(ref.Config)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s plugin %q: %w", ref.Role, ref.Name, err)
	}
	r.guard.MarkSatisfied(ref.Name)
	return inst, nil
}

// Content instantiates the descriptor and asserts the content capability.
func (r *PluginRegistry) Content(ref domain.PluginRef) (ports.ContentProvider, error) {
	inst, err := r.Instantiate(ref)
	if err != nil {
		return nil, err
	}
	p, ok := inst.(ports.ContentProvider)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not implement the content provider contract", ref.Name)
	}
	return p, nil
}

// Summarizer instantiates the descriptor and asserts the llm capability.
func (r *PluginRegistry) Summarizer(ref domain.PluginRef) (ports.Summarizer, error) {
	inst, err := r.Instantiate(ref)
	if err != nil {
		return nil, err
	}
	s, ok := inst.(ports.Summarizer)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not implement the summarizer contract", ref.Name)
	}
	return s, nil
}

// Action instantiates the descriptor and asserts the action capability.
func (r *PluginRegistry) Action(ref domain.PluginRef) (ports.Action, error) {
	inst, err := r.Instantiate(ref)
	if err != nil {
		return nil, err
	}
	a, ok := inst.(ports.Action)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not implement the action contract", ref.Name)
	}
	return a, nil
}

// Notifier instantiates the descriptor and asserts the notifier capability.
func (r *PluginRegistry) Notifier(ref domain.PluginRef) (ports.Notifier, error) {
	inst, err := r.Instantiate(ref)
	if err != nil {
		return nil, err
	}
	n, ok := inst.(ports.Notifier)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not implement the notifier contract", ref.Name)
	}
	return n, nil
}

// Trigger instantiates the descriptor and asserts the trigger capability.
func (r *PluginRegistry) Trigger(ref domain.PluginRef) (ports.Trigger, error) {
	inst, err := r.Instantiate(ref)
	if err != nil {
		return nil, err
	}
	t, ok := inst.(ports.Trigger)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not implement the trigger contract", ref.Name)
	}
	return t, nil
}
