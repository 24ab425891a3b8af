package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromPath reads a config file and returns the parsed Config with
// defaults filled in for anything the file leaves unset.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}

// Load parses config from bytes over the defaults.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults restores zero-valued policy knobs that yaml explicitly nulled
// out. A weight of exactly zero is never a useful setting; treat it as unset.
func (c *Config) fillDefaults() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.LedgerPath == "" {
		c.LedgerPath = def.LedgerPath
	}
	if c.Quality.NonUniformWeight == 0 && c.Quality.DiversityWeight == 0 {
		c.Quality.NonUniformWeight = def.Quality.NonUniformWeight
		c.Quality.DiversityWeight = def.Quality.DiversityWeight
	}
	if c.Quality.PassThreshold == 0 {
		c.Quality.PassThreshold = def.Quality.PassThreshold
	}
	if c.Quality.MinSampleRows == 0 {
		c.Quality.MinSampleRows = def.Quality.MinSampleRows
	}
	if c.Quality.SmallSampleFactor == 0 {
		c.Quality.SmallSampleFactor = def.Quality.SmallSampleFactor
	}
	if c.Verify.InCaseWeight == 0 && c.Verify.HistoryWeight == 0 {
		c.Verify.InCaseWeight = def.Verify.InCaseWeight
		c.Verify.HistoryWeight = def.Verify.HistoryWeight
	}
	if c.Verify.NeutralPrior == 0 {
		c.Verify.NeutralPrior = def.Verify.NeutralPrior
	}
}
