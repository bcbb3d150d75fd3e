package util

import (
	"fmt"
	"strings"

	"github.com/oliveagle/jsonpath"
)

// ValidateFieldPath checks that path is a JSONPath rooted at $.
func ValidateFieldPath(path string) error {
	if !strings.HasPrefix(path, "$.") {
		return fmt.Errorf("field %q must start with $.", path)
	}
	if _, err := jsonpath.Compile(path); err != nil {
		return fmt.Errorf("field %q: %w", path, err)
	}
	return nil
}

// FieldKey is the key a resolved field is stored under: the last path
// segment without any index suffix.
func FieldKey(path string) string {
	key := path
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.Index(key, "["); i >= 0 {
		key = key[:i]
	}
	return key
}

// ResolveFields looks up each field path in data and returns the values
// found, keyed by FieldKey. Paths that do not resolve, or resolve to nil,
// are skipped.
func ResolveFields(data map[string]any, fields []string) map[string]any {
	out := make(map[string]any)
	if len(data) == 0 {
		return out
	}
	for _, path := range fields {
		value, err := jsonpath.JsonPathLookup(data, path)
		if err != nil || value == nil {
			continue
		}
		out[FieldKey(path)] = value
	}
	return out
}
