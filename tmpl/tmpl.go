// Package tmpl renders {{key}} placeholders in prompts and note templates.
package tmpl

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

var whitespace = regexp.MustCompile(`\s+`)

// Vars resolves a placeholder name. ok is false for unknown names.
type Vars interface {
	Lookup(key string) (value any, ok bool)
}

// MapVars adapts a plain map.
type MapVars map[string]any

func (m MapVars) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Render replaces every {{key}} in template. Unknown keys and nil values are
// left as written.
func Render(template string, vars Vars) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if vars == nil {
			return match
		}
		v, ok := vars.Lookup(key)
		if !ok || v == nil {
			return match
		}
		return Stringify(v)
	})
}

// RenderMap is Render over a plain map.
func RenderMap(template string, vars map[string]any) string {
	return Render(template, MapVars(vars))
}

// Compile returns a reusable renderer for template.
func Compile(template string) func(Vars) string {
	return func(vars Vars) string { return Render(template, vars) }
}

// Keys lists the distinct placeholder names in order of first use.
func Keys(template string) []string {
	var keys []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Has reports whether template references key.
func Has(template, key string) bool {
	return strings.Contains(template, "{{"+key+"}}")
}

// RemoveWhitespace collapses runs of whitespace into one space and trims.
func RemoveWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Stringify formats scalars with fmt and everything else as JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
