// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating it.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/procurement-planner/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for a planning run. It is decoded once
// at the boundary and passed by pointer into every component constructor.
type Configuration struct {
	Seed       uint64           `yaml:"seed" mapstructure:"seed"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Demand     DemandConfig     `yaml:"demand" mapstructure:"demand"`
	Markup     MarkupConfig     `yaml:"markup" mapstructure:"markup"`
	Transit    TransitConfig    `yaml:"transit" mapstructure:"transit"`
	Logistics  LogisticsConfig  `yaml:"logistics" mapstructure:"logistics"`
	Stock      StockConfig      `yaml:"stock" mapstructure:"stock"`
	Solver     SolverConfig     `yaml:"solver" mapstructure:"solver"`
	Store      StoreConfig      `yaml:"store,omitempty" mapstructure:"store"`
	Logging    LoggingConfig    `yaml:"logging,omitempty" mapstructure:"logging"`
	Output     OutputConfig     `yaml:"output,omitempty" mapstructure:"output"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format    string `yaml:"format,omitempty" mapstructure:"format"`       // pretty, csv, json
	Directory string `yaml:"directory,omitempty" mapstructure:"directory"` // where exports are written
}

// StoreConfig points at the optional SQLite run store.
type StoreConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// requiredKeys must be present in a loaded file; there is no sensible default
// for any of them.
var requiredKeys = []string{
	"generation.priceRange",
	"generation.sizeRange",
	"generation.logisticsOptimal",
	"generation.logisticsBaseCost",
	"generation.priceZones",
	"generation.sizeZones",
	"demand.baseDemand",
	"demand.priceScale",
	"demand.sizeScale",
	"demand.priceSensitivity",
	"demand.sizeSensitivity",
	"demand.noise",
	"demand.minDemand",
	"demand.maxDemand",
	"markup.baseRate",
	"markup.priceScale",
	"markup.maxRate",
	"markup.noise",
	"markup.priceDivisor",
	"markup.minRate",
	"markup.maxRateClamp",
	"transit.baseWeights",
	"transit.thresholds",
	"transit.multipliers",
	"transit.modes",
	"logistics.penaltyFactor",
	"logistics.maxDifficulty",
	"stock.baseStock",
	"stock.noise",
	"stock.unboundedChanceBase",
	"stock.unboundedDecayScale",
	"stock.priceScale",
	"stock.sizeScale",
	"stock.priceSensitivity",
	"stock.sizeSensitivity",
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var missing []string
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, newConfigurationError(fmt.Errorf("missing required keys: %s", strings.Join(missing, ", ")))
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

// Normalize applies defaults to every section. It is idempotent.
func (c *Configuration) Normalize() {
	c.Generation.Normalize()
	c.Solver.Normalize()
	if c.Transit.DensityEpsilon <= 0 {
		c.Transit.DensityEpsilon = defaultDensityEpsilon
	}
	if c.Logistics.MinSizeLog <= 0 {
		c.Logistics.MinSizeLog = 1
	}
	c.Stock.normalize()
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
}
