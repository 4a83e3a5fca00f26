package domain

import "strings"

// Role identifies which slot of the pipeline a plugin fills.
type Role string

const (
	RoleContent  Role = "content"
	RoleLLM      Role = "llm"
	RoleAction   Role = "action"
	RoleNotifier Role = "notifier"
	RoleTrigger  Role = "trigger"
)

// PackSeparator qualifies a component name with its pack namespace,
// e.g. "twitter.filter_tweets".
const PackSeparator = "."

// PluginRef names a concrete plugin implementation plus the parameters it
// should be constructed with. It is built once from configuration and never
// mutated afterwards.
type PluginRef struct {
	Role   Role           `json:"role"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// Pack splits a pack-qualified name into pack and component. ok is false for
// flat plugin names.
func (r PluginRef) Pack() (pack, component string, ok bool) {
	return strings.Cut(r.Name, PackSeparator)
}

// CloneConfig returns a shallow copy of the parameter map so callers can
// amend it (e.g. inject tool specs) without touching the original.
func (r PluginRef) CloneConfig() map[string]any {
	clone := make(map[string]any, len(r.Config))
	for k, v := range r.Config {
		clone[k] = v
	}
	return clone
}
