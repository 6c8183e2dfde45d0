package config

import (
	"errors"
	"fmt"
	"sort"

	"ckcrowd/internal/services"
	"ckcrowd/internal/stage"
)

var agreementLevels = map[string]struct{}{
	"nominal":  {},
	"ordinal":  {},
	"interval": {},
	"ratio":    {},
}

var qualificationMetrics = map[string]struct{}{
	"accuracy":  {},
	"precision": {},
	"recall":    {},
	"f1":        {},
}

// Validate ensures the configuration is usable. Threshold problems are tagged
// with services.ErrThresholdMisconfiguration so callers can abort before any
// submission is read.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateAgreement(); err != nil {
		return err
	}
	if err := c.validateBonus(); err != nil {
		return err
	}
	if err := c.validateQualification(); err != nil {
		return err
	}
	if c.Generation.MinTurn < 0 {
		return errors.New("generation.min_turn must be >= 0")
	}
	if c.Audit.Similarity <= 0 || c.Audit.Similarity > 1 {
		return fmt.Errorf("audit.similarity must be in (0, 1], got %v", c.Audit.Similarity)
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStages() error {
	names := make([]string, 0, len(c.Stages))
	for name := range c.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := stage.Parse(name); err != nil {
			return fmt.Errorf("stages.%s: %w", name, err)
		}
	}
	for _, kind := range stage.All() {
		settings := c.Stage(kind)
		key := "stages." + string(kind)
		if settings.Raters < 1 {
			return services.Wrap(services.ErrThresholdMisconfiguration, string(kind), "config",
				fmt.Sprintf("%s.raters must be >= 1, got %d", key, settings.Raters), nil)
		}
		if settings.Threshold < 1 || settings.Threshold > settings.Raters {
			return services.Wrap(services.ErrThresholdMisconfiguration, string(kind), "config",
				fmt.Sprintf("%s.threshold must be between 1 and raters (%d), got %d", key, settings.Raters, settings.Threshold), nil)
		}
		if settings.NoneThreshold < 0 || settings.NoneThreshold > settings.Raters {
			return services.Wrap(services.ErrThresholdMisconfiguration, string(kind), "config",
				fmt.Sprintf("%s.none_threshold must be between 0 and raters (%d), got %d", key, settings.Raters, settings.NoneThreshold), nil)
		}
		if !stage.Grouping(settings.Grouping).Valid() {
			return fmt.Errorf("%s.grouping must be %q or %q, got %q", key, stage.GroupByTask, stage.GroupByTaskItems, settings.Grouping)
		}
		if kind.Definition().Selection() && settings.Raters < 2 {
			return services.Wrap(services.ErrThresholdMisconfiguration, string(kind), "config",
				fmt.Sprintf("%s.raters must be >= 2 for agreement statistics", key), nil)
		}
	}
	return nil
}

func (c *Config) validateAgreement() error {
	if _, ok := agreementLevels[c.Agreement.Level]; !ok {
		return fmt.Errorf("agreement.level must be nominal, ordinal, interval, or ratio, got %q", c.Agreement.Level)
	}
	return nil
}

func (c *Config) validateBonus() error {
	if c.Bonus.Rate < 0 {
		return errors.New("bonus.rate must be >= 0")
	}
	if c.Bonus.Baseline < 0 {
		return errors.New("bonus.baseline must be >= 0")
	}
	if c.Bonus.Scope != "worker" && c.Bonus.Scope != "assignment" {
		return fmt.Errorf("bonus.scope must be worker or assignment, got %q", c.Bonus.Scope)
	}
	if c.Bonus.MaxAmount <= 0 {
		return errors.New("bonus.max_amount must be positive")
	}
	if c.Bonus.GateOnQuality && (c.Bonus.MinQuality < -2 || c.Bonus.MinQuality > 2) {
		return services.Wrap(services.ErrThresholdMisconfiguration, "", "config",
			"bonus.min_quality must be within the quality label range [-2, 2]", nil)
	}
	return nil
}

func (c *Config) validateQualification() error {
	for _, metric := range c.Qualification.Metrics {
		if _, ok := qualificationMetrics[metric]; !ok {
			return fmt.Errorf("qualification.metrics: unknown metric %q", metric)
		}
	}
	for name, value := range map[string]float64{
		"accuracy":  c.Qualification.Accuracy,
		"precision": c.Qualification.Precision,
		"recall":    c.Qualification.Recall,
		"f1":        c.Qualification.F1,
	} {
		if value < 0 || value > 1 {
			return services.Wrap(services.ErrThresholdMisconfiguration, "", "config",
				fmt.Sprintf("qualification.%s must be between 0 and 1", name), nil)
		}
	}
	return nil
}

// QualificationThreshold returns the configured threshold for metric.
func (c *Config) QualificationThreshold(metric string) float64 {
	switch metric {
	case "accuracy":
		return c.Qualification.Accuracy
	case "precision":
		return c.Qualification.Precision
	case "recall":
		return c.Qualification.Recall
	case "f1":
		return c.Qualification.F1
	default:
		return 1
	}
}
