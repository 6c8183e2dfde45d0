package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ckcrowd/internal/stage"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CampaignDir string `toml:"campaign_dir"`
	LogDir      string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Canonical controls how free-text items are reduced to comparison keys.
type Canonical struct {
	ExcludeStopwords bool `toml:"exclude_stopwords"`
	Lemmatize        bool `toml:"lemmatize"`
}

// Aggregation controls batch parallelism.
type Aggregation struct {
	Workers int `toml:"workers"`
}

// StageSettings holds the consensus knobs of one stage.
type StageSettings struct {
	// Threshold is the minimum vote count for an item to be accepted.
	Threshold int `toml:"threshold"`
	// Raters is the number of assignments collected per task.
	Raters int `toml:"raters"`
	// NoneThreshold suppresses a task once this many "none of the above"
	// votes arrive. Zero disables suppression.
	NoneThreshold int    `toml:"none_threshold"`
	Grouping      string `toml:"grouping"`
}

// Agreement configures inter-rater agreement statistics.
type Agreement struct {
	Level     string  `toml:"level"`
	Tolerance float64 `toml:"tolerance"`
}

// Bonus configures incentive payouts.
type Bonus struct {
	Rate          float64 `toml:"rate"`
	Baseline      int     `toml:"baseline"`
	Scope         string  `toml:"scope"`
	GateOnQuality bool    `toml:"gate_on_quality"`
	MinQuality    float64 `toml:"min_quality"`
	QualifiedOnly bool    `toml:"qualified_only"`
	MaxAmount     float64 `toml:"max_amount"`
	Reason        string  `toml:"reason"`
}

// Qualification configures calibration quiz grading.
type Qualification struct {
	Metrics   []string `toml:"metrics"`
	Accuracy  float64  `toml:"accuracy"`
	Precision float64  `toml:"precision"`
	Recall    float64  `toml:"recall"`
	F1        float64  `toml:"f1"`
}

// Audit configures the near-duplicate scan over alternatives.
type Audit struct {
	// Similarity is the cosine similarity at which two alternatives are reported.
	Similarity float64 `toml:"similarity"`
}

// Notifications contains configuration for ntfy push notifications to the
// campaign operator.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Stages         bool   `toml:"stages"`
	Adjudication   bool   `toml:"adjudication"`
	Bonuses        bool   `toml:"bonuses"`
	Errors         bool   `toml:"errors"`
}

// Generation controls which validated facts seed the Generate stage.
type Generation struct {
	// MinTurn excludes fact groups whose final turn (0-based) is not past it.
	MinTurn int `toml:"min_turn"`
	// DistinctTurns requires head and tail to come from different turns.
	DistinctTurns bool `toml:"distinct_turns"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: campaign artifact directory and log directory
//   - Logging: log format and level
//   - Canonical: free-text comparison options
//   - Aggregation: parallelism of the per-task merge
//   - Stages: per-stage threshold, raters, none threshold, grouping
//   - Agreement: Krippendorff level and alpha/kappa tolerance
//   - Bonus: incentive rate, baseline, gates
//   - Qualification: calibration quiz metrics and thresholds
//   - Generation: fact grouping rules for the Generate stage input
//   - Audit: near-duplicate similarity cutoff
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths                    `toml:"paths"`
	Logging       Logging                  `toml:"logging"`
	Canonical     Canonical                `toml:"canonical"`
	Aggregation   Aggregation              `toml:"aggregation"`
	Stages        map[string]StageSettings `toml:"stages"`
	Agreement     Agreement                `toml:"agreement"`
	Bonus         Bonus                    `toml:"bonus"`
	Qualification Qualification            `toml:"qualification"`
	Generation    Generation               `toml:"generation"`
	Audit         Audit                    `toml:"audit"`
	Notifications Notifications            `toml:"notifications"`
}

// Stage returns the settings for kind, falling back to its defaults.
func (c *Config) Stage(kind stage.Kind) StageSettings {
	if settings, ok := c.Stages[string(kind)]; ok {
		return settings
	}
	return defaultStageSettings(kind)
}

// Grouping returns the configured grouping mode for kind.
func (c *Config) Grouping(kind stage.Kind) stage.Grouping {
	if g := stage.Grouping(c.Stage(kind).Grouping); g.Valid() {
		return g
	}
	return kind.Definition().Grouping
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}

		// Stage tables decode into an empty map so each table is seen once
		// under the spelling the file used; defaults are merged afterwards.
		cfg.Stages = nil
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		var present struct {
			Stages map[string]map[string]any `toml:"stages"`
		}
		if err := toml.Unmarshal(data, &present); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if cfg.Stages, err = mergeStageTables(cfg.Stages, present.Stages); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the campaign and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CampaignDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
