package ontology

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load_GlobsSortedAndMixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.ttl", "@prefix ex: <http://example.org/> .\nex:B a ex:Thing .\n")
	writeSource(t, dir, "a.ttl", "@prefix ex: <http://example.org/> .\nex:A a ex:Thing .\n")
	nt := writeSource(t, dir, "data.nt", "<http://example.org/C> <http://example.org/p> \"c\" .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: filepath.Join(dir, "*.ttl")},
		{Path: nt},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Fragments, 3)

	// glob matches come back sorted, then the literal source
	assert.Equal(t, filepath.Join(dir, "a.ttl"), res.Fragments[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.ttl"), res.Fragments[1].Path)
	assert.Equal(t, nt, res.Fragments[2].Path)
}

func TestLoader_Load_MissingLiteralPathRecorded(t *testing.T) {
	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: filepath.Join(t.TempDir(), "missing.ttl")},
	})

	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], os.ErrNotExist)
}

func TestLoader_Load_ParseFailureDoesNotBlockSiblings(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "bad.ttl", "ex:A ex:p .\n")
	writeSource(t, dir, "good.ttl", "@prefix ex: <http://example.org/> .\nex:A a ex:Thing .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: filepath.Join(dir, "*.ttl")},
	})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)

	var perr *ParseError
	require.ErrorAs(t, res.Errors[0], &perr)
	assert.Equal(t, filepath.Join(dir, "bad.ttl"), perr.File)

	require.Len(t, res.Fragments, 1)
	assert.Equal(t, filepath.Join(dir, "good.ttl"), res.Fragments[0].Path)
}

func TestLoader_Load_EmptyGlobWarns(t *testing.T) {
	dir := t.TempDir()

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: filepath.Join(dir, "*.ttl")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Fragments)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "matched no files")
}

func TestLoader_Load_NamespaceLabelsFragments(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "core.ttl", "@prefix ex: <http://example.org/> .\nex:A a ex:Thing .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: path, Namespace: "core"},
	})
	require.NoError(t, err)
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, "core", res.Fragments[0].Source)
}

func TestLoader_Load_BlankNodesScopedPerFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.ttl", "@prefix ex: <http://example.org/> .\n_:b0 a ex:Thing .\n")
	writeSource(t, dir, "b.ttl", "@prefix ex: <http://example.org/> .\n_:b0 a ex:Thing .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: filepath.Join(dir, "*.ttl")},
	})
	require.NoError(t, err)
	require.Len(t, res.Fragments, 2)
	assert.NotEqual(t, res.Fragments[0].Triples[0].Subject, res.Fragments[1].Triples[0].Subject)
}

func TestLoader_Load_FormatOverride(t *testing.T) {
	dir := t.TempDir()
	// Turtle content behind a generic extension
	path := writeSource(t, dir, "core.rdf", "@prefix ex: <http://example.org/> .\nex:A a ex:Thing .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{{Path: path}})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrNoParser)

	res, err = NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: path, Format: "turtle"},
	})
	require.NoError(t, err)
	require.Len(t, res.Fragments, 1)
	assert.Len(t, res.Fragments[0].Triples, 1)
}

func TestLoader_Load_DuplicateFilesLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "core.ttl", "@prefix ex: <http://example.org/> .\nex:A a ex:Thing .\n")

	res, err := NewLoader(nil, nil).Load(context.Background(), []Source{
		{Path: path},
		{Path: filepath.Join(dir, "*.ttl")},
	})
	require.NoError(t, err)
	assert.Len(t, res.Fragments, 1)
}
