package privacy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskIdentity(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"typical email", "alice@example.com", "al***@example.com"},
		{"short local part", "a@example.com", "a***@example.com"},
		{"two-rune local part", "ab@example.com", "ab***@example.com"},
		{"no delimiter", "not-an-email", "***"},
		{"empty", "", "***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.value, ClassIdentity))
		})
	}
}

func TestMaskContact(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"phone", "+15551234567", "***4567"},
		{"exactly suffix length", "1234", "***"},
		{"shorter than suffix", "12", "***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.value, ClassContact))
		})
	}
}

func TestMaskGenericNeverLeaks(t *testing.T) {
	for _, value := range []string{"secret note", "4111111111111111", "x"} {
		masked := Mask(value, ClassGeneric)
		assert.Equal(t, "***", masked)
		assert.False(t, strings.Contains(masked, value))
	}
}

func TestMaskIsDeterministic(t *testing.T) {
	for _, class := range []Class{ClassIdentity, ClassContact, ClassGeneric} {
		first := Mask("alice@example.com", class)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Mask("alice@example.com", class))
		}
	}
}

func TestRenderEmptyValue(t *testing.T) {
	empty := ""
	for _, value := range []*string{nil, &empty} {
		state := Render(value, ClassIdentity, false, true)
		assert.Equal(t, "—", state.Value)
		assert.False(t, state.Masked)
		assert.False(t, state.CanToggle)
	}
}

func TestRenderPrivilegedAlwaysRaw(t *testing.T) {
	value := "alice@example.com"
	for _, class := range []Class{ClassIdentity, ClassContact, ClassGeneric} {
		for _, toggleable := range []bool{true, false} {
			state := Render(&value, class, true, toggleable)
			assert.Equal(t, value, state.Value)
			assert.False(t, state.Masked)
		}
	}
}

func TestRenderUnprivilegedMasksByDefault(t *testing.T) {
	value := "alice@example.com"
	state := Render(&value, ClassIdentity, false, true)
	assert.Equal(t, "al***@example.com", state.Value)
	assert.True(t, state.Masked)
	assert.True(t, state.CanToggle)

	state = Render(&value, ClassGeneric, false, false)
	assert.Equal(t, "***", state.Value)
	assert.True(t, state.Masked)
	assert.False(t, state.CanToggle)
}

func TestStaticRoleCheckerRevocation(t *testing.T) {
	rc := NewStaticRoleChecker()
	rc.Grant("admin-1", RoleElevated)

	ok, err := rc.HasRole(context.Background(), "admin-1", RoleElevated)
	assert.NoError(t, err)
	assert.True(t, ok)

	rc.Revoke("admin-1", RoleElevated)
	ok, err = rc.HasRole(context.Background(), "admin-1", RoleElevated)
	assert.NoError(t, err)
	assert.False(t, ok, "revocation takes effect on next check")
}
