package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	for _, p := range AllPermissions {
		got, err := ParsePermission(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParsePermission(" Camera ")
	require.NoError(t, err)
	assert.Equal(t, PermissionCapture, got)

	_, err = ParsePermission("microphone")
	assert.Error(t, err)
}

func TestMissingPermissions(t *testing.T) {
	assert.Nil(t, missing(nil))

	s := NewStaticPermissions()
	assert.Equal(t, AllPermissions, missing(s))
	s.Set(PermissionCapture, true)
	assert.Equal(t, []Permission{PermissionOverlay}, missing(s))

	fn := PermissionFunc(func(p Permission) bool { return true })
	assert.Empty(t, missing(fn))
}

func TestPermissionMissingError(t *testing.T) {
	var err error = &PermissionMissingError{Missing: []Permission{PermissionCapture, PermissionOverlay}}
	assert.True(t, errors.Is(err, ErrPermissionMissing))
	assert.Equal(t, "guard: permission missing: capture, overlay", err.Error())
}
