package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "default on when unset",
			registry: New(nil),
			flag:     FlagLegacyCacheMigration,
			expected: true,
		},
		{
			name:     "configured value overrides default",
			registry: New(map[string]bool{FlagRemoteCustomCollections: false}),
			flag:     FlagRemoteCustomCollections,
			expected: false,
		},
		{
			name:     "extra flag set to true returns true",
			registry: New(map[string]bool{"feature-a": true}),
			flag:     "feature-a",
			expected: true,
		},
		{
			name:     "unknown flag returns false",
			registry: New(nil),
			flag:     "unknown-flag",
			expected: false,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagLegacyCacheMigration,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_All(t *testing.T) {
	configured := map[string]bool{FlagLegacyCacheMigration: false}
	r := New(configured)

	all := r.All()
	require.Equal(t, map[string]bool{
		FlagLegacyCacheMigration:    false,
		FlagRemoteCustomCollections: true,
	}, all)

	all[FlagRemoteCustomCollections] = false
	require.True(t, r.Enabled(FlagRemoteCustomCollections), "All returns a copy")

	configured[FlagLegacyCacheMigration] = true
	require.False(t, r.Enabled(FlagLegacyCacheMigration), "New does not alias its input")

	var nilRegistry *Registry
	require.Empty(t, nilRegistry.All())
}
