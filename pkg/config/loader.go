package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wouteroostervld/annotator/pkg/llm"
)

// Environment variables that override the active profile
const (
	EnvAPIKey      = "API_KEY"
	EnvAPIURL      = "API_URL"
	EnvModelName   = "MODEL_NAME"
	EnvTemperature = "MODEL_TEMPERATURE"
	EnvCI          = "CI"
)

var validate = validator.New()

// LoadGlobalConfigFromPath loads global config from a specific path using provided FileSystem
func LoadGlobalConfigFromPath(path string, fs FileSystem) (*GlobalConfig, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.ActiveProfile == "" {
		return nil, fmt.Errorf("active_profile not specified in config")
	}

	profile, ok := config.Profiles[config.ActiveProfile]
	if !ok || profile == nil {
		return nil, fmt.Errorf("active profile %s not found in config", config.ActiveProfile)
	}

	if err := validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", config.ActiveProfile, err)
	}

	return &config, nil
}

// Load resolves settings from the config file at path (DefaultPath when
// empty) and the environment. A missing file yields defaults plus environment.
func (l *Loader) Load(path string) (*Settings, error) {
	if path == "" {
		p, err := l.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = p
	}

	profile := &Profile{}
	profileName := DefaultProfileName
	configPath := ""
	configDir := ""

	if _, err := l.fs.Stat(path); err == nil {
		global, err := LoadGlobalConfigFromPath(path, l.fs)
		if err != nil {
			return nil, err
		}
		profile = global.Profiles[global.ActiveProfile]
		profileName = global.ActiveProfile
		if configPath, err = l.fs.Abs(path); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		configDir = filepath.Dir(configPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	settings := fromProfile(profile)
	settings.ConfigPath = configPath
	settings.ProfileName = profileName

	if err := l.applyEnv(settings); err != nil {
		return nil, err
	}

	// Relative paths resolve against the config file, or stay relative to
	// the working directory when there is none
	if configDir != "" {
		home, _ := l.fs.UserHomeDir()
		for _, p := range []*string{&settings.TemplatePath, &settings.SamplesDir, &settings.OutputDir, &settings.TrackingDBPath} {
			if *p == "" {
				continue
			}
			*p = ResolveRelativePath(configDir, *p, home)
		}
	}

	if settings.TrackingEnabled && settings.TrackingDBPath == "" {
		home, err := l.fs.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		settings.TrackingDBPath = filepath.Join(home, ".annotator", "runs.db")
	}

	return settings, nil
}

func fromProfile(p *Profile) *Settings {
	s := &Settings{
		Model: llm.ModelConfig{
			APIKey:      p.APIKey,
			APIURL:      p.APIURL,
			ModelName:   p.ModelName,
			Temperature: DefaultTemperature,
		},
		TemplatePath:  p.TemplatePath,
		SamplesDir:    p.SamplesDir,
		SamplePattern: p.SamplePattern,
		Blacklist:     append([]string{}, p.Blacklist...),
		Whitelist:     append([]string{}, p.Whitelist...),
		OutputDir:     p.OutputDir,
		Concurrency:   p.Concurrency,
		RateLimit:     p.RateLimit,
		RateBurst:     p.RateBurst,
	}
	if p.Temperature != nil {
		s.Model.Temperature = *p.Temperature
	}
	if p.Tracking != nil {
		s.TrackingEnabled = p.Tracking.Enabled
		s.TrackingDBPath = p.Tracking.DBPath
	}
	if s.SamplesDir == "" {
		s.SamplesDir = DefaultSamplesDir
	}
	if s.SamplePattern == "" {
		s.SamplePattern = DefaultSamplePattern
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.RateLimit > 0 && s.RateBurst == 0 {
		s.RateBurst = 1
	}
	return s
}

// applyEnv overrides model settings from the environment
func (l *Loader) applyEnv(s *Settings) error {
	if v, ok := l.lookup(EnvAPIKey); ok {
		s.Model.APIKey = v
	}
	if v, ok := l.lookup(EnvAPIURL); ok {
		s.Model.APIURL = v
	}
	if v, ok := l.lookup(EnvModelName); ok {
		s.Model.ModelName = v
	}
	if v, ok := l.lookup(EnvTemperature); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTemperature, v, err)
		}
		if t < 0 || t > 2 {
			return fmt.Errorf("invalid %s %v: must be between 0 and 2", EnvTemperature, t)
		}
		s.Model.Temperature = t
	}
	if _, ok := l.lookup(EnvCI); ok {
		s.TrackingEnabled = false
	}
	return nil
}

// lookup ignores variables that are set but blank
func (l *Loader) lookup(key string) (string, bool) {
	v, ok := l.env(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
