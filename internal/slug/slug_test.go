package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"View Users":           "view-users",
		"Manage User Roles":    "manage-user-roles",
		"Admin":                "admin",
		"  Trimmed  Name  ":    "trimmed-name",
		"Éditeur Général":      "editeur-general",
		"API / Tokens":         "api-tokens",
		"already-a-slug":       "already-a-slug",
		"MiXeD CaSe 42":        "mixed-case-42",
		"":                     "",
		"---":                  "",
		"backups & restores!!": "backups-restores",
	}
	for input, want := range cases {
		assert.Equal(t, want, Make(input), "input %q", input)
	}
}

func TestMakeStable(t *testing.T) {
	once := Make("Delete Activity Logs")
	twice := Make(Make("Delete Activity Logs"))
	assert.Equal(t, once, twice)
}
