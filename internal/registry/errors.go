package registry

import "fmt"

// ConfigErrorKind classifies configuration failures detected at load time.
type ConfigErrorKind string

const (
	ErrCyclicDependency  ConfigErrorKind = "cyclic_dependency"
	ErrUnknownDependency ConfigErrorKind = "unknown_dependency"
	ErrInvalidField      ConfigErrorKind = "invalid_field"
)

// ConfigError is fatal at load time: no check runs when the suite fails
// validation.
type ConfigError struct {
	Kind   ConfigErrorKind
	Check  string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Check != "" {
		return fmt.Sprintf("config error (%s) in check %q: %s", e.Kind, e.Check, e.Detail)
	}
	return fmt.Sprintf("config error (%s): %s", e.Kind, e.Detail)
}

func invalidf(check, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: ErrInvalidField, Check: check, Detail: fmt.Sprintf(format, args...)}
}
