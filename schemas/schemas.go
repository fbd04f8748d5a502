// Package schemas embeds the JSON Schemas used to validate suite files.
package schemas

import _ "embed"

// SuiteSchemaJSON is the JSON Schema for checks.yaml suite files.
//
//go:embed suite.schema.json
var SuiteSchemaJSON string
