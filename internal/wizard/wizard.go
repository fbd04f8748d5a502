// Package wizard collects suite metadata interactively and renders a
// starter checks.yaml.
package wizard

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// SuiteSpec holds all fields collected during the interactive wizard.
type SuiteSpec struct {
	Name        string
	Description string
	Concurrency string
	Checks      []CheckSpec
}

// CheckSpec is one scaffolded check entry.
type CheckSpec struct {
	Name     string
	Command  string
	Blocking bool
}

var suiteNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateName enforces the same naming rule the schema applies to checks.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if !suiteNamePattern.MatchString(name) {
		return fmt.Errorf("name must start with a letter or digit and contain only letters, digits, '_', '.', '-'")
	}
	return nil
}

const suiteTemplate = `name: {{ .Name }}
{{- if .Description }}
description: {{ printf "%q" .Description }}
{{- end }}
{{- if .Concurrency }}
concurrency: {{ .Concurrency }}
{{- end }}

checks:
{{- range .Checks }}
  - name: {{ .Name }}
    command: ["sh", "-c", {{ printf "%q" .Command }}]
    timeout_seconds: 300
{{- if not .Blocking }}
    blocking: false
{{- end }}
{{- end }}
`

// RunSuiteWizard runs an interactive huh form to collect suite metadata.
// If initialName is non-empty, it pre-populates the name field.
func RunSuiteWizard(in io.Reader, out io.Writer, initialName string) (*SuiteSpec, error) {
	var (
		name        = initialName
		description string
		concurrency string
		preset      []string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Suite name").
				Description("A short name for this check suite").
				Placeholder("pre-merge").
				Value(&name).
				Validate(func(s string) error {
					return ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Description").
				Description("What does this suite gate?").
				Placeholder("Pre-merge quality gates").
				Value(&description),
			huh.NewInput().
				Title("Concurrency").
				Description("Maximum checks running at once (blank for default)").
				Placeholder("4").
				Value(&concurrency).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					for _, r := range s {
						if r < '0' || r > '9' {
							return fmt.Errorf("concurrency must be a non-negative integer")
						}
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Starter checks").
				Description("Pick the checks to scaffold; edit the commands afterwards").
				Options(
					huh.NewOption("lint", "lint"),
					huh.NewOption("build", "build"),
					huh.NewOption("unit-tests", "unit-tests"),
					huh.NewOption("security-scan", "security-scan"),
					huh.NewOption("spellcheck (advisory)", "spellcheck"),
				).
				Value(&preset),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	spec := &SuiteSpec{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Concurrency: strings.TrimSpace(concurrency),
	}
	for _, p := range preset {
		spec.Checks = append(spec.Checks, presetCheck(p))
	}
	if len(spec.Checks) == 0 {
		spec.Checks = append(spec.Checks, presetCheck("build"))
	}
	return spec, nil
}

func presetCheck(name string) CheckSpec {
	switch name {
	case "lint":
		return CheckSpec{Name: "lint", Command: "make lint", Blocking: true}
	case "build":
		return CheckSpec{Name: "build", Command: "make build", Blocking: true}
	case "unit-tests":
		return CheckSpec{Name: "unit-tests", Command: "make test", Blocking: true}
	case "security-scan":
		return CheckSpec{Name: "security-scan", Command: "make scan", Blocking: true}
	case "spellcheck":
		return CheckSpec{Name: "spellcheck", Command: "make spellcheck", Blocking: false}
	default:
		return CheckSpec{Name: name, Command: "true", Blocking: true}
	}
}

// GenerateSuiteYAML renders a checks.yaml from the given spec.
func GenerateSuiteYAML(spec *SuiteSpec) (string, error) {
	tmpl, err := template.New("suite").Parse(suiteTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
