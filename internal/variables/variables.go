// Package variables resolves {{name}} placeholders in step fields.
//
// Substitution is fail-open: a placeholder with no matching variable is
// left in the output verbatim so one missing optional value never aborts
// a run. Replacement is a single left-to-right pass; substituted text is
// never scanned again.
package variables

import "regexp"

// Map holds variable values by name.
type Map map[string]string

// placeholder matches {{identifier}} where identifier is letters, digits,
// underscore or hyphen.
var placeholder = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\}\}`)

// Substitute replaces every placeholder in text that has a value in vars.
func Substitute(text string, vars Map) string {
	if len(vars) == 0 || !HasReferences(text) {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[2 : len(m)-2]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// HasReferences reports whether text contains at least one placeholder.
func HasReferences(text string) bool {
	return placeholder.MatchString(text)
}

// References returns the distinct variable names used in text, in order
// of first appearance.
func References(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Missing returns the names referenced in text that vars does not define.
func Missing(text string, vars Map) []string {
	var missing []string
	for _, name := range References(text) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Overlay returns a lookup that prefers values in top over base. Neither
// input is modified.
func Overlay(base, top Map) Map {
	out := make(Map, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}
