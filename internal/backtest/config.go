// Package backtest drives strategy simulations over a shared market series,
// isolates per-strategy account state, and consolidates the resulting equity
// curves for analytics.
package backtest

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/version"
	"github.com/skewlab/overlay-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigSchemaVersion is the schema version this build reads. Configs with a
// different major or minor version are rejected.
const ConfigSchemaVersion = "1.0.0"

// Config is the YAML-backed run configuration.
type Config struct {
	SchemaVersion  string  `yaml:"schema_version" json:"schema_version" validate:"required" jsonschema:"title=Schema Version,description=Config schema version this file targets"`
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"required,gt=0" jsonschema:"title=Initial Capital,description=Starting capital per strategy in USD,minimum=0"`
	TenorDays      int     `yaml:"tenor_days" json:"tenor_days" validate:"required,gt=0" jsonschema:"title=Tenor Days,description=Option tenor in calendar days,minimum=1"`

	// Fixed-moneyness strike fractions shared by the percentage-based
	// strategies.
	PutOTM  float64 `yaml:"put_otm" json:"put_otm" validate:"required,gt=0,lt=1" jsonschema:"title=Put OTM Fraction,description=Put strike as a fraction of spot"`
	CallOTM float64 `yaml:"call_otm" json:"call_otm" validate:"required,gt=1" jsonschema:"title=Call OTM Fraction,description=Call strike as a fraction of spot"`

	// SmartWheelWindows lists the regime window lengths to run the adaptive
	// wheel with, one strategy instance per window.
	SmartWheelWindows []int `yaml:"smart_wheel_windows" json:"smart_wheel_windows" jsonschema:"title=Smart Wheel Windows,description=Regime window lengths for adaptive wheel instances"`

	// ChainPath optionally points at an option-chain CSV; absent means pure
	// theoretical pricing.
	ChainPath optional.Option[string] `yaml:"chain_path" json:"chain_path" jsonschema:"title=Chain Path,description=Optional option chain CSV path"`

	ResultsFolder string `yaml:"results_folder" json:"results_folder" validate:"required" jsonschema:"title=Results Folder,description=Directory for result tables"`
}

// UnmarshalYAML implements custom unmarshaling so the optional chain path
// round-trips through a plain pointer.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		SchemaVersion     string  `yaml:"schema_version"`
		InitialCapital    float64 `yaml:"initial_capital"`
		TenorDays         int     `yaml:"tenor_days"`
		PutOTM            float64 `yaml:"put_otm"`
		CallOTM           float64 `yaml:"call_otm"`
		SmartWheelWindows []int   `yaml:"smart_wheel_windows"`
		ChainPath         *string `yaml:"chain_path"`
		ResultsFolder     string  `yaml:"results_folder"`
	}

	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}

	c.SchemaVersion = p.SchemaVersion
	c.InitialCapital = p.InitialCapital
	c.TenorDays = p.TenorDays
	c.PutOTM = p.PutOTM
	c.CallOTM = p.CallOTM
	c.SmartWheelWindows = p.SmartWheelWindows
	c.ResultsFolder = p.ResultsFolder

	if p.ChainPath != nil {
		c.ChainPath = optional.Some(*p.ChainPath)
	} else {
		c.ChainPath = optional.None[string]()
	}

	return nil
}

// DefaultConfig returns the production defaults: 30-day tenor, 90/110
// strikes, one adaptive wheel at the one-year window.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:     ConfigSchemaVersion,
		InitialCapital:    100_000,
		TenorDays:         30,
		PutOTM:            0.90,
		CallOTM:           1.10,
		SmartWheelWindows: []int{365},
		ChainPath:         optional.None[string](),
		ResultsFolder:     "results",
	}
}

// ParseConfig reads, validates, and version-checks a YAML config string.
func ParseConfig(raw string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(raw), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config YAML", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "config validation failed", err)
	}

	if err := version.CheckSchemaCompatibility(ConfigSchemaVersion, config.SchemaVersion); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidVersion, "config schema version rejected", err)
	}

	return config, nil
}

// LoadConfig is ParseConfig over a file path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return ParseConfig(string(raw))
}

// GenerateSchema builds the JSON schema describing the config file format.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "optional.Option[string]") {
				return &jsonschema.Schema{Type: "string"}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "overlay-backtest-config"
	schema.Description = "Configuration schema for the options overlay backtest"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders the config schema as indented JSON.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
