package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionAllows(t *testing.T) {
	tests := []struct {
		name     string
		perm     Permission
		resource string
		action   string
		want     bool
	}{
		{"exact match", Permission{ResourceRegistrations, ActionWrite}, ResourceRegistrations, ActionWrite, true},
		{"action mismatch", Permission{ResourceRegistrations, ActionRead}, ResourceRegistrations, ActionWrite, false},
		{"resource mismatch", Permission{ResourceSettings, ActionWrite}, ResourceRegistrations, ActionWrite, false},
		{"wildcard action", Permission{ResourceRegistrations, Wildcard}, ResourceRegistrations, ActionDelete, true},
		{"wildcard resource", Permission{Wildcard, ActionWrite}, ResourceSettings, ActionWrite, true},
		{"full wildcard", Permission{Wildcard, Wildcard}, ResourceAudit, ActionRead, true},
		{"wildcard resource wrong action", Permission{Wildcard, ActionRead}, ResourceSettings, ActionWrite, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.perm.Allows(tt.resource, tt.action))
		})
	}
}

func TestAllowed(t *testing.T) {
	perms := []Permission{
		{ResourceRegistrations, ActionRead},
		{ResourceSettings, ActionWrite},
	}
	require.True(t, Allowed(perms, ResourceSettings, ActionWrite))
	require.True(t, Allowed(perms, ResourceRegistrations, ActionRead))
	require.False(t, Allowed(perms, ResourceRegistrations, ActionWrite))
	require.False(t, Allowed(nil, ResourceRegistrations, ActionRead))
}
