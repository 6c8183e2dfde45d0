package config

import "ckcrowd/internal/stage"

const (
	defaultConfigPath    = "~/.config/ckcrowd/config.toml"
	projectConfigName    = "ckcrowd.toml"
	defaultCampaignDir   = "~/.local/share/ckcrowd/campaign"
	defaultLogDir        = "~/.local/share/ckcrowd/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultWorkers       = 4
	defaultLevel         = "nominal"
	defaultTolerance     = 0.1
	defaultBonusRate     = 0.1
	defaultBonusBaseline = 1
	defaultBonusScope    = "worker"
	defaultBonusMax      = 5.0
	defaultBonusReason   = "Bonus for additional annotations."
	defaultQualMetric    = "precision"
	defaultQualThreshold = 0.8
	defaultMinTurn       = 2
	defaultSimilarity    = 0.8
	defaultNtfyTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	stages := make(map[string]StageSettings, len(stage.All()))
	for _, kind := range stage.All() {
		stages[string(kind)] = defaultStageSettings(kind)
	}
	return Config{
		Paths: Paths{
			CampaignDir: defaultCampaignDir,
			LogDir:      defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Canonical: Canonical{
			ExcludeStopwords: true,
			Lemmatize:        true,
		},
		Aggregation: Aggregation{Workers: defaultWorkers},
		Stages:      stages,
		Agreement: Agreement{
			Level:     defaultLevel,
			Tolerance: defaultTolerance,
		},
		Bonus: Bonus{
			Rate:      defaultBonusRate,
			Baseline:  defaultBonusBaseline,
			Scope:     defaultBonusScope,
			MaxAmount: defaultBonusMax,
			Reason:    defaultBonusReason,
		},
		Qualification: Qualification{
			Metrics:   []string{defaultQualMetric},
			Accuracy:  defaultQualThreshold,
			Precision: defaultQualThreshold,
			Recall:    defaultQualThreshold,
			F1:        defaultQualThreshold,
		},
		Generation: Generation{
			MinTurn:       defaultMinTurn,
			DistinctTurns: true,
		},
		Audit: Audit{Similarity: defaultSimilarity},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Stages:         true,
			Adjudication:   true,
			Bonuses:        true,
			Errors:         true,
		},
	}
}

func defaultStageSettings(kind stage.Kind) StageSettings {
	def := kind.Definition()
	settings := StageSettings{Threshold: 2, Raters: 3, Grouping: string(def.Grouping)}
	switch kind {
	case stage.Annotate:
		settings.Threshold = 1
	case stage.Generate:
		settings.Threshold = 1
		settings.NoneThreshold = 1
	case stage.Adjudicate:
		settings.Threshold = 1
		settings.Raters = 2
	}
	return settings
}
