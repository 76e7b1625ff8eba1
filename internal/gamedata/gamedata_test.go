package gamedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfessionName(t *testing.T) {
	tests := []struct {
		id   int32
		want string
	}{
		{1, "Stormblade"},
		{11, "Marksman"},
		{13, "Soul Musician"},
		{6, "unknown profession (6)"},
		{-3, "unknown profession (-3)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProfessionName(tt.id))
	}
}

func TestRoleFromSkill(t *testing.T) {
	role, ok := RoleFromSkill(1714)
	assert.True(t, ok)
	assert.Equal(t, "Iaido", role)

	role, ok = RoleFromSkill(2203622)
	assert.True(t, ok)
	assert.Equal(t, "Falconry", role)

	role, ok = RoleFromSkill(999)
	assert.False(t, ok)
	assert.Empty(t, role)
}
