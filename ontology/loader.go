package ontology

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semgen/graph"
)

// Source names one ontology input from the pipeline config.
type Source struct {
	// Path is a literal file path or a doublestar glob.
	Path string

	// Format forces a serialization; empty means sniff by extension.
	Format string

	// Namespace labels the fragments this source produces.
	Namespace string
}

// Result collects the outcome of loading one or more sources. A file
// that fails to parse lands in Errors without preventing sibling
// files from loading; the caller decides whether to escalate.
type Result struct {
	Fragments []graph.Fragment
	Warnings  []string
	Errors    []error
}

// defaultParseWorkers caps concurrent file parses.
const defaultParseWorkers = 4

// Loader resolves source globs and parses the matched files into
// fragments. Fragment order follows source order, then sorted match
// order within a glob, so downstream merging is deterministic.
type Loader struct {
	registry *Registry
	logger   *slog.Logger
	workers  int
}

func NewLoader(registry *Registry, logger *slog.Logger) *Loader {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{registry: registry, logger: logger, workers: defaultParseWorkers}
}

// Load parses every file the sources resolve to. A literal path that
// does not exist and a file that fails to parse both land in
// Result.Errors; a glob that matches nothing yields a warning. The
// returned error is reserved for infrastructure failures such as a
// canceled context.
func (l *Loader) Load(ctx context.Context, sources []Source) (*Result, error) {
	type loadTask struct {
		source Source
		path   string
		parser Parser
	}

	res := &Result{}
	var tasks []loadTask
	seen := make(map[string]bool)

	for _, src := range sources {
		files, err := resolveFiles(src.Path)
		if err != nil {
			res.Errors = append(res.Errors, err)
			l.logger.Error("failed to resolve ontology source", "pattern", src.Path, "error", err)
			continue
		}
		if len(files) == 0 {
			warning := fmt.Sprintf("ontology source %q matched no files", src.Path)
			res.Warnings = append(res.Warnings, warning)
			l.logger.Warn("ontology source matched no files", "pattern", src.Path)
			continue
		}
		for _, file := range files {
			if seen[file] {
				continue
			}
			seen[file] = true
			parser, err := l.parserFor(src, file)
			if err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			tasks = append(tasks, loadTask{source: src, path: file, parser: parser})
		}
	}

	fragments := make([]*graph.Fragment, len(tasks))
	taskErrs := make([]error, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(task.path)
			if err != nil {
				taskErrs[i] = fmt.Errorf("reading ontology source: %w", err)
				return nil
			}
			frag, err := task.parser.Parse(task.path, data)
			if err != nil {
				taskErrs[i] = err
				return nil
			}
			frag.Source = task.source.Namespace
			if frag.Source == "" {
				frag.Source = task.source.Path
			}
			frag.NamespaceBlankNodes(blankScope(task.path))
			fragments[i] = frag
			l.logger.Debug("parsed ontology source",
				"path", task.path,
				"format", task.parser.Format(),
				"triples", len(frag.Triples))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for i := range tasks {
		switch {
		case taskErrs[i] != nil:
			res.Errors = append(res.Errors, taskErrs[i])
		case fragments[i] != nil:
			res.Fragments = append(res.Fragments, *fragments[i])
		}
	}
	return res, nil
}

func (l *Loader) parserFor(src Source, path string) (Parser, error) {
	if src.Format == "" {
		return l.registry.ForPath(path)
	}
	format, err := graph.ParseFormat(src.Format)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", src.Path, err)
	}
	return l.registry.ForFormat(format)
}

// ResolveFiles expands a file path or doublestar glob to concrete
// files. Glob matches come back sorted; directories are skipped.
func ResolveFiles(pattern string) ([]string, error) {
	return resolveFiles(pattern)
}

func resolveFiles(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve source %q: %w", pattern, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("resolve source %q: is a directory, expected a file or glob", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve source %q: %w", pattern, err)
	}
	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// blankScope derives a per-file blank node scope from the path so
// labels from different files cannot collide after merging.
func blankScope(path string) string {
	var b strings.Builder
	for _, r := range filepath.ToSlash(path) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
