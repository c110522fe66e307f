package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required for one report run.
type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Job           JobConfig           `yaml:"job"`
	Report        ReportConfig        `yaml:"report"`
	Rules         RulesConfig         `yaml:"rules"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ElasticsearchConfig configures access to the cluster hosting the ML job.
type ElasticsearchConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// JobConfig scopes the anomaly query to a single ML job and window.
type JobConfig struct {
	ID           string  `yaml:"id"`
	LookbackDays int     `yaml:"lookbackDays"`
	MinScore     float64 `yaml:"minScore"`
	ResultSize   int     `yaml:"resultSize"`
	SortOrder    string  `yaml:"sortOrder"`
}

// ReportConfig controls which artifacts are produced and where.
type ReportConfig struct {
	OutputDir string   `yaml:"outputDir"`
	Formats   []string `yaml:"formats"`
	TopN      int      `yaml:"topN"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls Prometheus push for the batch run.
type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	PushGateway string `yaml:"pushGateway"`
	JobName     string `yaml:"jobName"`
}

// MaxResultSize is the hard cap on results per search. Larger anomaly sets
// truncate; there is no pagination.
const MaxResultSize = 1000

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_REPORTER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Elasticsearch: ElasticsearchConfig{
			BaseURL: "http://localhost:9200",
			Timeout: 10 * time.Second,
		},
		Job: JobConfig{
			LookbackDays: 50,
			MinScore:     0,
			ResultSize:   MaxResultSize,
			SortOrder:    "score",
		},
		Report: ReportConfig{
			OutputDir: "reports",
			Formats:   []string{"pdf", "markdown", "charts"},
			TopN:      5,
		},
		Rules:   RulesConfig{Path: ""},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Metrics: MetricsConfig{Enabled: false, JobName: "anomaly_reporter"},
	}
}

func validate(cfg *Config) error {
	if cfg.Job.LookbackDays <= 0 {
		return fmt.Errorf("job.lookbackDays must be positive, got %d", cfg.Job.LookbackDays)
	}
	if cfg.Job.MinScore < 0 || cfg.Job.MinScore > 100 {
		return fmt.Errorf("job.minScore must be within [0, 100], got %g", cfg.Job.MinScore)
	}
	if cfg.Job.ResultSize <= 0 || cfg.Job.ResultSize > MaxResultSize {
		cfg.Job.ResultSize = MaxResultSize
	}
	switch cfg.Job.SortOrder {
	case "score", "timestamp":
	default:
		return fmt.Errorf("job.sortOrder must be %q or %q, got %q", "score", "timestamp", cfg.Job.SortOrder)
	}
	for _, format := range cfg.Report.Formats {
		switch format {
		case "pdf", "markdown", "charts":
		default:
			return fmt.Errorf("unknown report format %q", format)
		}
	}
	if cfg.Report.TopN <= 0 {
		cfg.Report.TopN = 5
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		cfg.Elasticsearch.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_ES_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Elasticsearch.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_REPORTER_JOB_ID"); v != "" {
		cfg.Job.ID = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_LOOKBACK_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Job.LookbackDays = days
		}
	}
	if v := os.Getenv("MIRADOR_REPORTER_MIN_SCORE"); v != "" {
		if score, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Job.MinScore = score
		}
	}
	if v := os.Getenv("MIRADOR_REPORTER_SORT_ORDER"); v != "" {
		cfg.Job.SortOrder = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_OUTPUT_DIR"); v != "" {
		cfg.Report.OutputDir = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_FORMATS"); v != "" {
		cfg.Report.Formats = splitAndTrim(v)
	}
	if v := os.Getenv("MIRADOR_REPORTER_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_REPORTER_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_REPORTER_PUSH_GATEWAY"); v != "" {
		cfg.Metrics.PushGateway = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("MIRADOR_REPORTER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
