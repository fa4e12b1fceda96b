package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *PipelineConfig {
	cfg := DefaultConfig()
	cfg.Name = "docs"
	cfg.Ontologies = []OntologySource{{Path: "ontologies/core.ttl"}}
	cfg.Templates = []TemplateConfig{{Path: "templates/page.tmpl", OutputPattern: "{template}.md"}}
	return cfg
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*PipelineConfig)
		violation string
	}{
		{
			name:   "valid config",
			modify: func(c *PipelineConfig) {},
		},
		{
			name:      "missing name",
			modify:    func(c *PipelineConfig) { c.Name = " " },
			violation: "name: required",
		},
		{
			name:      "no ontologies",
			modify:    func(c *PipelineConfig) { c.Ontologies = nil },
			violation: "ontologies: at least one source is required",
		},
		{
			name:      "ontology missing path",
			modify:    func(c *PipelineConfig) { c.Ontologies[0].Path = "" },
			violation: "ontologies[0].path: required",
		},
		{
			name:      "ontology bad format",
			modify:    func(c *PipelineConfig) { c.Ontologies[0].Format = "rdfxml" },
			violation: "ontologies[0].format",
		},
		{
			name:      "no templates",
			modify:    func(c *PipelineConfig) { c.Templates = nil },
			violation: "templates: at least one template is required",
		},
		{
			name:      "template missing output pattern",
			modify:    func(c *PipelineConfig) { c.Templates[0].OutputPattern = "" },
			violation: "templates[0].output_pattern: required",
		},
		{
			name:      "missing output directory",
			modify:    func(c *PipelineConfig) { c.Output.Directory = "" },
			violation: "output.directory: required",
		},
		{
			name:      "negative workers",
			modify:    func(c *PipelineConfig) { c.Parallelism.Workers = -1 },
			violation: "parallelism.workers: must not be negative",
		},
		{
			name:      "unknown strategy",
			modify:    func(c *PipelineConfig) { c.Parallelism.Strategy = "sideways" },
			violation: `parallelism.strategy: "sideways"`,
		},
		{
			name:      "negative debounce",
			modify:    func(c *PipelineConfig) { c.Watch.DebounceMs = -5 },
			violation: "watch.debounce_ms: must not be negative",
		},
		{
			name:      "invalid ignore glob",
			modify:    func(c *PipelineConfig) { c.Watch.Ignore = []string{"[bad"} },
			violation: "watch.ignore[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.violation == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.violation)
		})
	}
}

func TestPipelineConfig_Validate_CollectsAllViolations(t *testing.T) {
	cfg := &PipelineConfig{
		Parallelism: ParallelismConfig{Workers: -1, Strategy: "sideways"},
		Watch:       WatchConfig{DebounceMs: -5},
	}

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Violations), 7)
}

func TestPipelineConfig_EffectiveValues(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, DefaultWorkers, cfg.WorkerCount())
	assert.Equal(t, StrategyTemplates, cfg.FanoutStrategy())
	assert.Equal(t, time.Duration(0), cfg.TaskTimeout())
	assert.Equal(t, DefaultDebounce, cfg.DebounceInterval())
	assert.True(t, cfg.ContinueOnError())

	cfg.Parallelism.Enabled = false
	assert.Equal(t, 1, cfg.WorkerCount())

	cfg.Parallelism.Enabled = true
	cfg.Parallelism.Workers = 7
	cfg.Parallelism.TaskTimeoutMs = 250
	cfg.Validation.Strict = true
	assert.Equal(t, 7, cfg.WorkerCount())
	assert.Equal(t, 250*time.Millisecond, cfg.TaskTimeout())
	assert.False(t, cfg.ContinueOnError())
}

func TestLoad_AppliesDefaultsAndAnchorsPaths(t *testing.T) {
	dir := t.TempDir()
	doc := `
name: docs
ontologies:
  - path: ontologies/*.ttl
    namespace: core
templates:
  - path: templates/page.tmpl
    output_pattern: "{template}.md"
output:
  directory: out
`
	path := filepath.Join(dir, "semgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.Name)
	assert.Equal(t, filepath.Join(dir, "ontologies", "*.ttl"), cfg.Ontologies[0].Path)
	assert.Equal(t, filepath.Join(dir, "templates", "page.tmpl"), cfg.Templates[0].Path)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Directory)

	// defaults survive the overlay
	assert.True(t, cfg.Parallelism.Enabled)
	assert.Equal(t, DefaultWorkers, cfg.Parallelism.Workers)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFind_WalksParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(root, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))

	assert.Equal(t, path, Find(nested))
	assert.Equal(t, "", Find(t.TempDir()))
}
