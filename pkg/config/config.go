// Package config holds the immutable hyperparameters of the learning engine and
// loads them from YAML files and key=value overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is passed by value at construction and never mutated by the engine.
type Config struct {
	Disks int `yaml:"disks" mapstructure:"disks" validate:"gte=1,lte=8"`
	Pegs  int `yaml:"pegs" mapstructure:"pegs" validate:"gte=3,lte=8"`

	Alpha        float64 `yaml:"alpha" mapstructure:"alpha" validate:"gt=0,lte=1"`
	Gamma        float64 `yaml:"gamma" mapstructure:"gamma" validate:"gte=0,lte=1"`
	Epsilon      float64 `yaml:"epsilon" mapstructure:"epsilon" validate:"gte=0,lte=1"`
	EpsilonDecay float64 `yaml:"epsilon_decay" mapstructure:"epsilon_decay" validate:"gt=0,lte=1"`
	MinEpsilon   float64 `yaml:"min_epsilon" mapstructure:"min_epsilon" validate:"gte=0,lte=1,ltefield=Epsilon"`

	GoalReward  float64 `yaml:"goal_reward" mapstructure:"goal_reward"`
	StepPenalty float64 `yaml:"step_penalty" mapstructure:"step_penalty"`

	MaxStepsPerEpisode int `yaml:"max_steps_per_episode" mapstructure:"max_steps_per_episode" validate:"gte=1"`
	SolveStepCap       int `yaml:"solve_step_cap" mapstructure:"solve_step_cap" validate:"gte=1"`
	HistoryLimit       int `yaml:"history_limit" mapstructure:"history_limit" validate:"gte=0"`

	// Seed fixes the exploration sequence. Zero means seeded from the clock.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// Default returns the reference hyperparameters.
func Default() Config {
	return Config{
		Disks:              3,
		Pegs:               3,
		Alpha:              0.1,
		Gamma:              0.9,
		Epsilon:            0.9,
		EpsilonDecay:       0.9,
		MinEpsilon:         0.01,
		GoalReward:         50,
		StepPenalty:        -0.5,
		MaxStepsPerEpisode: 50,
		SolveStepCap:       50,
		HistoryLimit:       500,
	}
}

var presets = map[string]func() Config{
	"default": Default,
	// Low initial exploration with larger reward magnitudes.
	"conservative": func() Config {
		cfg := Default()
		cfg.Epsilon = 0.1
		cfg.GoalReward = 100
		cfg.StepPenalty = -1
		return cfg
	},
}

// Preset returns a named configuration.
func Preset(name string) (Config, error) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown preset %q (known: %s)", ErrInvalidConfig, name, strings.Join(PresetNames(), ", "))
	}
	return fn(), nil
}

// PresetNames lists the available presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var validate = validator.New()

// Validate checks ranges and cross-field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Load reads a YAML file and decodes it over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return Apply(Default(), raw)
}

// Apply decodes overrides (e.g. from YAML or "key=value" flags) over base and validates the result.
// String values are converted, so {"alpha": "0.2"} is accepted.
func Apply(base Config, overrides map[string]any) (Config, error) {
	cfg := base
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(overrides); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseOverrides turns "key=value" pairs into a map for Apply.
func ParseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: override %q is not key=value", ErrInvalidConfig, p)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
