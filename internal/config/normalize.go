package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"ckcrowd/internal/stage"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeStages()
	c.normalizeAgreement()
	c.normalizeBonus()
	c.normalizeQualification()
	if c.Aggregation.Workers <= 0 {
		c.Aggregation.Workers = defaultWorkers
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := os.LookupEnv("CKCROWD_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.CampaignDir) == "" {
		c.Paths.CampaignDir = defaultCampaignDir
	}
	if value, ok := os.LookupEnv("CKCROWD_CAMPAIGN_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CampaignDir = value
	}
	var err error
	if c.Paths.CampaignDir, err = expandPath(strings.TrimSpace(c.Paths.CampaignDir)); err != nil {
		return fmt.Errorf("paths.campaign_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv("CKCROWD_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// stageKey canonicalizes a stage table name so "validate-generated" and
// "validate_generated" name the same entry.
func stageKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// mergeStageTables lays the stage tables read from a file over the stage
// defaults. Only the keys present in a table override a default, and two
// spellings of one stage are rejected.
func mergeStageTables(tables map[string]StageSettings, present map[string]map[string]any) (map[string]StageSettings, error) {
	merged := make(map[string]StageSettings, len(stage.All()))
	source := make(map[string]string, len(tables))
	for _, name := range slices.Sorted(maps.Keys(tables)) {
		key := stageKey(name)
		kind, err := stage.Parse(key)
		if err != nil {
			merged[name] = tables[name]
			continue
		}
		if prev, dup := source[key]; dup {
			return nil, fmt.Errorf("stages.%s: configured twice, as %q and %q", key, prev, name)
		}
		source[key] = name

		settings := defaultStageSettings(kind)
		table := tables[name]
		fields := present[name]
		if _, ok := fields["threshold"]; ok {
			settings.Threshold = table.Threshold
		}
		if _, ok := fields["raters"]; ok {
			settings.Raters = table.Raters
		}
		if _, ok := fields["none_threshold"]; ok {
			settings.NoneThreshold = table.NoneThreshold
		}
		if _, ok := fields["grouping"]; ok {
			settings.Grouping = table.Grouping
		}
		merged[key] = settings
	}
	return merged, nil
}

// normalizeStages canonicalizes stage keys and fills stages missing from the
// config. A canonically spelled entry wins over an alias of the same stage.
func (c *Config) normalizeStages() {
	normalized := make(map[string]StageSettings, len(c.Stages))
	names := slices.Sorted(maps.Keys(c.Stages))
	for _, canonicalPass := range []bool{true, false} {
		for _, name := range names {
			key := stageKey(name)
			if (key == name) != canonicalPass {
				continue
			}
			if _, taken := normalized[key]; taken {
				continue
			}
			settings := c.Stages[name]
			settings.Grouping = strings.ToLower(strings.TrimSpace(settings.Grouping))
			normalized[key] = settings
		}
	}
	for _, kind := range stage.All() {
		settings, ok := normalized[string(kind)]
		if !ok {
			normalized[string(kind)] = defaultStageSettings(kind)
			continue
		}
		if settings.Grouping == "" {
			settings.Grouping = string(kind.Definition().Grouping)
		}
		normalized[string(kind)] = settings
	}
	c.Stages = normalized
}

func (c *Config) normalizeAgreement() {
	c.Agreement.Level = strings.ToLower(strings.TrimSpace(c.Agreement.Level))
	if c.Agreement.Level == "" {
		c.Agreement.Level = defaultLevel
	}
	if c.Agreement.Tolerance <= 0 {
		c.Agreement.Tolerance = defaultTolerance
	}
}

func (c *Config) normalizeBonus() {
	c.Bonus.Scope = strings.ToLower(strings.TrimSpace(c.Bonus.Scope))
	if c.Bonus.Scope == "" {
		c.Bonus.Scope = defaultBonusScope
	}
	c.Bonus.Reason = strings.TrimSpace(c.Bonus.Reason)
	if c.Bonus.Reason == "" {
		c.Bonus.Reason = defaultBonusReason
	}
}

func (c *Config) normalizeQualification() {
	metrics := make([]string, 0, len(c.Qualification.Metrics))
	seen := make(map[string]struct{}, len(c.Qualification.Metrics))
	for _, metric := range c.Qualification.Metrics {
		metric = strings.ToLower(strings.TrimSpace(metric))
		if metric == "" {
			continue
		}
		if _, ok := seen[metric]; ok {
			continue
		}
		seen[metric] = struct{}{}
		metrics = append(metrics, metric)
	}
	if len(metrics) == 0 {
		metrics = []string{defaultQualMetric}
	}
	c.Qualification.Metrics = metrics
}
