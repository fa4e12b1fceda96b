package template

import (
	"fmt"
	"strings"
)

// ExpandPattern resolves {token} placeholders in an output naming
// pattern. Unknown or unclosed tokens are errors, so a typo fails the
// plan instead of silently producing odd file names.
func ExpandPattern(pattern string, vars map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(pattern[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("unclosed token in output pattern %q", pattern)
		}
		name := pattern[i+1 : i+end]
		value, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("unknown token {%s} in output pattern %q", name, pattern)
		}
		b.WriteString(value)
		i += end + 1
	}
	return b.String(), nil
}
