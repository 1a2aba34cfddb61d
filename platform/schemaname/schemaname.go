// Package schemaname guards tenant schema identifiers before they are
// interpolated into SQL. Every repository that addresses a tenant-scoped
// table must call Validate first; only the schema qualifier is ever
// interpolated, all values stay parameterized.
package schemaname

import (
	"fmt"
	"regexp"
	"strings"
)

// Prefix is the namespace prefix shared by all tenant schemas.
const Prefix = "tenant_"

var pattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate returns an error unless name is a safe schema identifier.
// An invalid name indicates a data-integrity bug, never a user input
// problem, so callers treat this as a hard abort.
func Validate(name string) error {
	if name == "" || !pattern.MatchString(name) {
		return fmt.Errorf("invalid tenant schema name: %q", name)
	}
	return nil
}

// ForStateCode derives the schema name for a tenant state code
// (e.g. "KA" -> "tenant_ka") and validates the result.
func ForStateCode(stateCode string) (string, error) {
	name := Prefix + strings.ToLower(strings.TrimSpace(stateCode))
	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}
