package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergegate/mergegate/internal/registry"
	"github.com/mergegate/mergegate/internal/validation"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("pre-merge"))
	assert.NoError(t, ValidateName("suite_2.release"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("-leading-dash"))
	assert.Error(t, ValidateName("has spaces"))
}

func TestGenerateSuiteYAML(t *testing.T) {
	spec := &SuiteSpec{
		Name:        "pre-merge",
		Description: "Pre-merge quality gates",
		Concurrency: "4",
		Checks: []CheckSpec{
			{Name: "lint", Command: "make lint", Blocking: true},
			{Name: "spellcheck", Command: "make spellcheck", Blocking: false},
		},
	}

	content, err := GenerateSuiteYAML(spec)
	require.NoError(t, err)

	assert.Contains(t, content, "name: pre-merge")
	assert.Contains(t, content, "concurrency: 4")
	assert.Contains(t, content, "blocking: false")

	// The scaffold must satisfy both the schema and the registry.
	require.Empty(t, validation.ValidateSuiteBytes([]byte(content)))

	suite, err := registry.Parse([]byte(content))
	require.NoError(t, err)
	require.Len(t, suite.Checks, 2)
	assert.True(t, suite.Checks[0].IsBlocking())
	assert.False(t, suite.Checks[1].IsBlocking())
}

func TestGenerateSuiteYAML_DescriptionWithColon(t *testing.T) {
	spec := &SuiteSpec{
		Name:        "release",
		Description: "gates: everything before a release tag",
		Checks:      []CheckSpec{{Name: "build", Command: "make build", Blocking: true}},
	}

	content, err := GenerateSuiteYAML(spec)
	require.NoError(t, err)
	require.Empty(t, validation.ValidateSuiteBytes([]byte(content)))

	suite, err := registry.Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, "gates: everything before a release tag", suite.Description)
}

func TestGenerateSuiteYAML_MinimalSpec(t *testing.T) {
	spec := &SuiteSpec{
		Name:   "minimal",
		Checks: []CheckSpec{{Name: "build", Command: "make build", Blocking: true}},
	}

	content, err := GenerateSuiteYAML(spec)
	require.NoError(t, err)
	assert.NotContains(t, content, "description:")
	assert.NotContains(t, content, "concurrency:")

	require.Empty(t, validation.ValidateSuiteBytes([]byte(content)))
}

func TestPresetChecks(t *testing.T) {
	spell := presetCheck("spellcheck")
	assert.False(t, spell.Blocking)

	lint := presetCheck("lint")
	assert.True(t, lint.Blocking)
	assert.NotEmpty(t, lint.Command)
}
