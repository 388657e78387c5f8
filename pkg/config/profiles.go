package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile overrides the decision parameters for one symbol.
type Profile struct {
	Symbol          string  `yaml:"symbol"`
	Timeframe       string  `yaml:"timeframe"`
	IntervalSeconds int     `yaml:"interval_seconds"`
	BuyThreshold    float64 `yaml:"buy_threshold"`
	SellThreshold   float64 `yaml:"sell_threshold"`
	MaxDecisions    int     `yaml:"max_decisions"`
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads per-symbol trading profiles from a YAML file and returns
// them keyed by symbol. A missing path returns an empty map.
func LoadProfiles(path string) (map[string]Profile, error) {
	out := make(map[string]Profile)
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	for _, p := range file.Profiles {
		if p.Symbol == "" {
			return nil, fmt.Errorf("profile entry missing symbol")
		}
		out[p.Symbol] = p
	}
	return out, nil
}
