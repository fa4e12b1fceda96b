package graph

import (
	"fmt"
	"time"
)

// Merge combines parsed fragments into a single immutable Context.
// Fragments are consumed in the order given, which the loader derives
// from config order, so merge output is deterministic for a fixed set
// of inputs. Duplicate statements collapse to one. Conflicting prefix
// declarations resolve last-wins and record a warning.
func Merge(fragments []Fragment) *Context {
	ctx := &Context{
		prefixes:    make(map[string]string),
		bySubject:   make(map[string][]int),
		byPredicate: make(map[string][]int),
	}

	seen := make(map[string]struct{})
	seenPath := make(map[string]struct{})

	for _, f := range fragments {
		if f.Path != "" {
			if _, dup := seenPath[f.Path]; !dup {
				seenPath[f.Path] = struct{}{}
				ctx.meta.SourcePaths = append(ctx.meta.SourcePaths, f.Path)
			}
		}
		// Labels are walked in sorted order so conflict warnings come out
		// the same way on every run.
		for _, label := range sortedLabels(f.Prefixes) {
			ns := f.Prefixes[label]
			if prev, ok := ctx.prefixes[label]; ok && prev != ns {
				ctx.warnings = append(ctx.warnings, fmt.Sprintf(
					"prefix %q redefined from <%s> to <%s> by %s", label, prev, ns, f.Path))
			}
			ctx.prefixes[label] = ns
		}
		for _, t := range f.Triples {
			key := t.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			i := len(ctx.triples)
			ctx.triples = append(ctx.triples, t)
			ctx.bySubject[t.Subject] = append(ctx.bySubject[t.Subject], i)
			ctx.byPredicate[t.Predicate] = append(ctx.byPredicate[t.Predicate], i)
		}
	}

	ctx.meta.BuiltAt = time.Now().UTC()
	ctx.meta.TripleCount = len(ctx.triples)
	return ctx
}
