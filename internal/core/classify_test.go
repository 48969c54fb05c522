package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassifier(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		desc string
		want Category
	}{
		{"Membership Fee", CategoryMembership},
		{"Annual Membership Fee", CategoryMembership},
		{"Annual Fee 2024", CategoryAnnual},
		{"Guard Fee - Raya", CategoryGuard},
		{"Excess Payment Brought Forward", CategoryExcess},
		{"Sticker", CategoryOther},
		{"annual fee", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.desc))
		})
	}
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - category: guard
    contains: [Guard, Security]
  - category: membership
    contains: [Membership]
fallback: misc
`)
	c, err := ParseRules(data)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, CategoryGuard, c.Classify("Security Levy"))
	assert.Equal(t, CategoryMembership, c.Classify("Membership Fee"))
	assert.Equal(t, Category("misc"), c.Classify("Annual Fee"))
	assert.Equal(t, "Misc", Category("misc").Label())
}

func TestParseRulesErrors(t *testing.T) {
	tests := map[string]string{
		"empty":       "rules: []",
		"no category": "rules:\n  - contains: [x]",
		"no keywords": "rules:\n  - category: guard",
		"bad yaml":    "rules: [",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	c, err := LoadRulesFile("")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - category: excess\n    contains: [Excess]\n"), 0o644))
	c, err = LoadRulesFile(path)
	require.NoError(t, err)
	assert.Equal(t, CategoryExcess, c.Classify("Excess Payment"))

	_, err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
