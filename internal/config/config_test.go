package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ckcrowd/internal/config"
	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCampaign := filepath.Join(tempHome, ".local", "share", "ckcrowd", "campaign")
	if cfg.Paths.CampaignDir != wantCampaign {
		t.Fatalf("unexpected campaign dir: got %q want %q", cfg.Paths.CampaignDir, wantCampaign)
	}
	if got := cfg.Stage(stage.Validate); got.Threshold != 2 || got.Raters != 3 {
		t.Fatalf("unexpected validate defaults: %+v", got)
	}
	if got := cfg.Grouping(stage.Generate); got != stage.GroupByTaskItems {
		t.Fatalf("unexpected generate grouping: %s", got)
	}
	if cfg.Bonus.Baseline != 1 || cfg.Bonus.Rate != 0.1 {
		t.Fatalf("unexpected bonus defaults: %+v", cfg.Bonus)
	}
	if len(cfg.Qualification.Metrics) != 1 || cfg.Qualification.Metrics[0] != "precision" {
		t.Fatalf("unexpected qualification metrics: %v", cfg.Qualification.Metrics)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	campaign := filepath.Join(t.TempDir(), "campaign")
	t.Setenv("CKCROWD_CAMPAIGN_DIR", campaign)
	t.Setenv("CKCROWD_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CampaignDir != campaign {
		t.Fatalf("expected env campaign dir, got %q", cfg.Paths.CampaignDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadCustomStageSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[stages.validate-generated]
threshold = 3
raters = 5

[agreement]
level = "Ordinal"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution %q %v", resolved, exists)
	}
	got := cfg.Stage(stage.ValidateGenerated)
	if got.Threshold != 3 || got.Raters != 5 || got.Grouping != "task" {
		t.Fatalf("unexpected validate_generated settings: %+v", got)
	}
	if cfg.Stage(stage.Annotate).Raters != 3 {
		t.Fatal("expected untouched stages to keep defaults")
	}
	if cfg.Agreement.Level != "ordinal" {
		t.Fatalf("expected normalized level, got %q", cfg.Agreement.Level)
	}
}

func TestLoadStageAliasIsDeterministic(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[stages.validate-generated]\nthreshold = 3\nraters = 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	for i := 0; i < 100; i++ {
		cfg, _, _, err := config.Load(path)
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		got := cfg.Stage(stage.ValidateGenerated)
		if got.Threshold != 3 || got.Raters != 5 {
			t.Fatalf("load %d ignored the stage table: %+v", i, got)
		}
		if len(cfg.Stages) != len(stage.All()) {
			t.Fatalf("load %d left alias keys behind: %v", i, cfg.Stages)
		}
	}
}

func TestLoadPartialStageTableKeepsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[stages.generate]\nraters = 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Stage(stage.Generate)
	if got.Raters != 4 || got.Threshold != 1 || got.NoneThreshold != 1 || got.Grouping != "task_items" {
		t.Fatalf("unexpected generate settings: %+v", got)
	}
}

func TestLoadRejectsStageConfiguredTwice(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[stages.validate_generated]\nthreshold = 2\n\n[stages.validate-generated]\nthreshold = 3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "configured twice") {
		t.Fatalf("expected duplicate stage error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[bonus]\nrat = 0.2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestValidateThresholdMisconfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold above raters", func(c *config.Config) {
			c.Stages["validate"] = config.StageSettings{Threshold: 4, Raters: 3, Grouping: "task"}
		}},
		{"zero threshold", func(c *config.Config) {
			c.Stages["annotate"] = config.StageSettings{Threshold: 0, Raters: 3, Grouping: "task"}
		}},
		{"none threshold above raters", func(c *config.Config) {
			c.Stages["generate"] = config.StageSettings{Threshold: 1, Raters: 2, NoneThreshold: 3, Grouping: "task_items"}
		}},
		{"single rater selection stage", func(c *config.Config) {
			c.Stages["adjudicate"] = config.StageSettings{Threshold: 1, Raters: 1, Grouping: "task"}
		}},
		{"quality gate out of range", func(c *config.Config) {
			c.Bonus.GateOnQuality = true
			c.Bonus.MinQuality = 3
		}},
		{"qualification threshold out of range", func(c *config.Config) {
			c.Qualification.F1 = 1.5
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrThresholdMisconfiguration) {
				t.Fatalf("expected threshold misconfiguration, got %v", err)
			}
			if !services.IsFatal(err) {
				t.Fatal("threshold misconfiguration must be fatal")
			}
		})
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"grouping", func(c *config.Config) {
			c.Stages["validate"] = config.StageSettings{Threshold: 2, Raters: 3, Grouping: "worker"}
		}, "grouping"},
		{"level", func(c *config.Config) { c.Agreement.Level = "cosine" }, "agreement.level"},
		{"scope", func(c *config.Config) { c.Bonus.Scope = "task" }, "bonus.scope"},
		{"metric", func(c *config.Config) { c.Qualification.Metrics = []string{"auc"} }, "qualification.metrics"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"stage name", func(c *config.Config) { c.Stages["rip"] = config.StageSettings{} }, "stages.rip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	defaults := config.Default()
	for _, kind := range stage.All() {
		if parsed.Stages[string(kind)] != defaults.Stages[string(kind)] {
			t.Fatalf("sample %s settings %+v differ from defaults %+v", kind, parsed.Stages[string(kind)], defaults.Stages[string(kind)])
		}
	}
	if parsed.Bonus != defaults.Bonus {
		t.Fatalf("sample bonus %+v differs from defaults %+v", parsed.Bonus, defaults.Bonus)
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}
