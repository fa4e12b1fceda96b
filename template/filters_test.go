package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyFilter(t *testing.T, name string, args ...string) string {
	t.Helper()
	f, ok := DefaultFilters().filters[name]
	require.True(t, ok, "filter %s not registered", name)
	out, err := f(args...)
	require.NoError(t, err)
	return out
}

func TestDefaultFilters_CaseConversions(t *testing.T) {
	assert.Equal(t, "http_server", applyFilter(t, "snake", "HTTPServer"))
	assert.Equal(t, "widget_count", applyFilter(t, "snake", "widgetCount"))
	assert.Equal(t, "widget-count", applyFilter(t, "kebab", "widget_count"))
	assert.Equal(t, "widgetCount", applyFilter(t, "camel", "widget-count"))
	assert.Equal(t, "WidgetCount", applyFilter(t, "pascal", "widget count"))
	assert.Equal(t, "Widget Count", applyFilter(t, "title", "widget count"))
}

func TestDefaultFilters_IRIHelpers(t *testing.T) {
	assert.Equal(t, "Widget", applyFilter(t, "localname", "http://example.org/ns#Widget"))
	assert.Equal(t, "Widget", applyFilter(t, "localname", "http://example.org/Widget"))
	assert.Equal(t, "Widget", applyFilter(t, "localname", "ex:Widget"))
	assert.Equal(t, "plain", applyFilter(t, "localname", "plain"))
}

func TestDefaultFilters_StringUtilities(t *testing.T) {
	assert.Equal(t, "b-c", applyFilter(t, "replace", "a", "b", "a-c"))
	assert.Equal(t, "a, b", applyFilter(t, "join", ", ", "a", "b"))
	assert.Equal(t, "  x\n\n  y", applyFilter(t, "indent", "2", "x\n\ny"))
	assert.Equal(t, "fallback", applyFilter(t, "default", "fallback", ""))
	assert.Equal(t, "set", applyFilter(t, "default", "fallback", "set"))
}

func TestDefaultFilters_ArityErrors(t *testing.T) {
	f := DefaultFilters().filters["upper"]
	_, err := f("a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 argument")

	_, err = DefaultFilters().filters["replace"]("just-one")
	require.Error(t, err)
}

func TestFilterRegistry_RegisterDuplicate(t *testing.T) {
	identity := func(s string) string { return s }

	r := NewFilterRegistry()
	require.NoError(t, r.Register("x", unary("x", identity)))
	err := r.Register("x", unary("x", identity))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestFilterRegistry_FuncMapAllowlist(t *testing.T) {
	r := DefaultFilters()

	all := r.FuncMap(nil)
	assert.Len(t, all, len(r.Names()))

	restricted := r.FuncMap([]string{"upper", "nope"})
	assert.Len(t, restricted, 1)
	_, ok := restricted["upper"]
	assert.True(t, ok)
}

func TestExpandPattern(t *testing.T) {
	vars := map[string]string{"pipeline": "docs", "template": "page", "ontology": "core", "ext": "md"}

	out, err := ExpandPattern("{ontology}/{template}.{ext}", vars)
	require.NoError(t, err)
	assert.Equal(t, "core/page.md", out)

	out, err = ExpandPattern("static.txt", vars)
	require.NoError(t, err)
	assert.Equal(t, "static.txt", out)

	_, err = ExpandPattern("{nope}.md", vars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown token {nope}")

	_, err = ExpandPattern("{template.md", vars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed token")
}
