// Package config provides Viper-based configuration loading for the tactics tools.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Movement budget policies accepted by RulesConfig.MovementPolicy.
const (
	PolicyTwoPhase = "two_phase"
	PolicyFlat     = "flat"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path. Empty means stderr.
	Output string `mapstructure:"output"`
}

// RulesConfig holds tunable battle rules.
type RulesConfig struct {
	// MovementPolicy selects how a unit's per-turn movement budget is derived:
	// "two_phase" (2*move points - moved) or "flat" (move points - moved).
	MovementPolicy string `mapstructure:"movement_policy"`
	// InitiativeDice is the dice expression added to the initiative attribute.
	InitiativeDice string `mapstructure:"initiative_dice"`
}

// DataConfig lists the content directories loaded at startup.
type DataConfig struct {
	SkillsDir  string `mapstructure:"skills_dir"`
	UnitsDir   string `mapstructure:"units_dir"`
	ObjectsDir string `mapstructure:"objects_dir"`
	LevelsDir  string `mapstructure:"levels_dir"`
	// ScriptsDir holds AI scoring scripts. Empty disables scripted scoring.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// RNGConfig controls the randomness source.
type RNGConfig struct {
	// Seed selects a deterministic source when non-zero; zero means crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// DevServerConfig holds the HTTP inspection server settings.
type DevServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (d DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Data      DataConfig      `mapstructure:"data"`
	RNG       RNGConfig       `mapstructure:"rng"`
	DevServer DevServerConfig `mapstructure:"devserver"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRules(c.Rules); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateData(c.Data); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDevServer(c.DevServer); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	if r.MovementPolicy != PolicyTwoPhase && r.MovementPolicy != PolicyFlat {
		errs = append(errs, fmt.Sprintf("rules.movement_policy must be one of [two_phase, flat], got %q", r.MovementPolicy))
	}
	if r.InitiativeDice == "" {
		errs = append(errs, "rules.initiative_dice must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateData(d DataConfig) error {
	var errs []string
	if d.SkillsDir == "" {
		errs = append(errs, "data.skills_dir must not be empty")
	}
	if d.UnitsDir == "" {
		errs = append(errs, "data.units_dir must not be empty")
	}
	if d.ObjectsDir == "" {
		errs = append(errs, "data.objects_dir must not be empty")
	}
	if d.LevelsDir == "" {
		errs = append(errs, "data.levels_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDevServer(d DevServerConfig) error {
	var errs []string
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("devserver.port must be 1-65535, got %d", d.Port))
	}
	if d.ShutdownTimeout < 0 {
		errs = append(errs, "devserver.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// TACTICS_RULES_MOVEMENT_POLICY overrides rules.movement_policy, etc.
	v.SetEnvPrefix("TACTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated only with default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rules.movement_policy", PolicyTwoPhase)
	v.SetDefault("rules.initiative_dice", "1d6")

	v.SetDefault("data.skills_dir", "content/skills")
	v.SetDefault("data.units_dir", "content/units")
	v.SetDefault("data.objects_dir", "content/objects")
	v.SetDefault("data.levels_dir", "content/levels")
	v.SetDefault("data.scripts_dir", "content/scripts")

	v.SetDefault("rng.seed", 0)

	v.SetDefault("devserver.host", "127.0.0.1")
	v.SetDefault("devserver.port", 8085)
	v.SetDefault("devserver.shutdown_timeout", "5s")
}
