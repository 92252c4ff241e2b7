// Package flags provides feature flags read from configuration.
// Flags are read-only after initialization; unknown flags are off.
package flags

import (
	"maps"

	"github.com/zjrosen/iconlens/internal/log"
)

const (
	// FlagLegacyCacheMigration converts durable entries written in the old
	// per-collection key layout on first load.
	FlagLegacyCacheMigration = "legacy-cache-migration"

	// FlagRemoteCustomCollections allows http(s) URLs in
	// custom_collection_json_paths. When off, remote entries are skipped.
	FlagRemoteCustomCollections = "remote-custom-collections"
)

// Defaults returns the value of every known flag when configuration is
// silent about it.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagLegacyCacheMigration:    true,
		FlagRemoteCustomCollections: true,
	}
}

// Registry holds feature flag state.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from configured values layered over Defaults.
func New(configured map[string]bool) *Registry {
	flags := Defaults()
	maps.Copy(flags, configured)
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled reports whether the named flag is on. A nil registry reports
// every flag off.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
