package config

import (
	"github.com/wouteroostervld/annotator/pkg/llm"
)

// GlobalConfig represents the configuration file at ~/.annotator/config.yaml
type GlobalConfig struct {
	Version       string              `yaml:"version"`
	ActiveProfile string              `yaml:"active_profile"`
	Profiles      map[string]*Profile `yaml:"profiles"`
}

// Profile represents a single configuration profile with all settings
type Profile struct {
	// Model service
	APIKey      string   `yaml:"api_key,omitempty"`
	APIURL      string   `yaml:"api_url,omitempty" validate:"omitempty,url"`
	ModelName   string   `yaml:"model_name,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`

	// Prompt template file (empty = built-in template)
	TemplatePath string `yaml:"template_path,omitempty"`

	// Sample discovery
	SamplesDir    string   `yaml:"samples_dir,omitempty"`
	SamplePattern string   `yaml:"sample_pattern,omitempty"`
	Blacklist     []string `yaml:"blacklist"` // Reject patterns (applied first)
	Whitelist     []string `yaml:"whitelist"` // Exception patterns (override blacklist)

	// Annotated files are written here
	OutputDir string `yaml:"output_dir,omitempty"`

	Tracking *TrackingConfig `yaml:"tracking,omitempty"`

	// Throughput
	Concurrency int     `yaml:"concurrency,omitempty" validate:"gte=0,lte=64"`
	RateLimit   float64 `yaml:"rate_limit,omitempty" validate:"gte=0"` // Requests per second, 0 = unlimited
	RateBurst   int     `yaml:"rate_burst,omitempty" validate:"gte=0"`
}

// TrackingConfig configures the run tracking database
type TrackingConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path,omitempty"`
}

// Settings is the resolved runtime configuration of one profile
type Settings struct {
	Model llm.ModelConfig

	TemplatePath  string
	SamplesDir    string
	SamplePattern string
	Blacklist     []string
	Whitelist     []string
	OutputDir     string

	TrackingEnabled bool
	TrackingDBPath  string

	Concurrency int
	RateLimit   float64
	RateBurst   int

	// Metadata for tracking
	ConfigPath  string // Empty when no config file was found
	ProfileName string
}

// Defaults
const (
	DefaultTemperature   = 0.3
	DefaultSamplesDir    = "feedings"
	DefaultSamplePattern = "function_sample*.py"
	DefaultOutputDir     = "outputs"
	DefaultProfileName   = "default"
	DefaultConcurrency   = 1
)
