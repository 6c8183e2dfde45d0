package testsupport

import (
	"path/filepath"
	"testing"

	"ckcrowd/internal/config"
	"ckcrowd/internal/stage"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CampaignDir = filepath.Join(base, "campaign")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Aggregation.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithStage overrides the consensus settings of one stage.
func WithStage(kind stage.Kind, threshold, raters, noneThreshold int) ConfigOption {
	return func(b *configBuilder) {
		settings := b.cfg.Stage(kind)
		settings.Threshold = threshold
		settings.Raters = raters
		settings.NoneThreshold = noneThreshold
		b.cfg.Stages[string(kind)] = settings
	}
}

// WithGrouping overrides the grouping mode of one stage.
func WithGrouping(kind stage.Kind, grouping stage.Grouping) ConfigOption {
	return func(b *configBuilder) {
		settings := b.cfg.Stage(kind)
		settings.Grouping = string(grouping)
		b.cfg.Stages[string(kind)] = settings
	}
}

// WithMinTurn changes the generation grouping cutoff.
func WithMinTurn(turn int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.MinTurn = turn
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CampaignDir)
}
