// Package qname parses the "category.label" names used to configure
// frame stages.
package qname

import (
	"fmt"
	"strings"
)

// Separator splits the category from the label.
const Separator = "."

// Name identifies an object or attribute kind by producer category and
// semantic label.
type Name struct {
	Category string
	Label    string
}

// String renders the name in its configuration form.
func (n Name) String() string {
	return n.Category + Separator + n.Label
}

// IsZero reports whether both parts are empty.
func (n Name) IsZero() bool {
	return n.Category == "" && n.Label == ""
}

// ConfigError reports a configuration string that is not a valid
// qualified name. Field names the option that carried it.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid qualified name %q: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: invalid qualified name %q: %s", e.Field, e.Value, e.Reason)
}

// Parse splits s into a Name. Exactly one separator and two non-empty
// parts are required.
func Parse(field, s string) (Name, error) {
	parts := strings.Split(s, Separator)
	if len(parts) != 2 {
		return Name{}, &ConfigError{
			Field:  field,
			Value:  s,
			Reason: fmt.Sprintf("expected exactly 2 %q-separated parts, got %d", Separator, len(parts)),
		}
	}
	if parts[0] == "" || parts[1] == "" {
		return Name{}, &ConfigError{Field: field, Value: s, Reason: "category and label must be non-empty"}
	}
	return Name{Category: parts[0], Label: parts[1]}, nil
}

// ParseList parses every entry of ss. The first malformed entry aborts
// parsing; its index is included in the error field.
func ParseList(field string, ss []string) ([]Name, error) {
	names := make([]Name, 0, len(ss))
	for i, s := range ss {
		n, err := Parse(fmt.Sprintf("%s[%d]", field, i), s)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// Set is a membership test over names.
type Set map[Name]struct{}

// NewSet builds a Set from names.
func NewSet(names ...Name) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether n is in the set.
func (s Set) Contains(n Name) bool {
	_, ok := s[n]
	return ok
}
