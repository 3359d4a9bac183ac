package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"trading-analysisv1/internal/backtest"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/signal"
)

// Scenario is a backtest plan read from YAML. Every entry in Configs
// starts from Base and overrides only the fields it sets.
type Scenario struct {
	Symbol  string
	Data    string // CSV file with the symbol's bars, relative to the scenario file when not absolute
	Base    backtest.Config
	Weights *signal.Weights
	Configs []backtest.NamedConfig
	Grid    *backtest.Grid
}

type scenarioFile struct {
	Symbol  string          `yaml:"symbol"`
	Data    string          `yaml:"data"`
	Base    yaml.Node       `yaml:"base"`
	Weights *signal.Weights `yaml:"weights"`
	Configs []struct {
		Name   string    `yaml:"name"`
		Config yaml.Node `yaml:"config"`
	} `yaml:"configs"`
	Grid *backtest.Grid `yaml:"grid"`
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := ParseScenario(raw)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if sc.Data != "" && !filepath.IsAbs(sc.Data) {
		sc.Data = filepath.Join(filepath.Dir(path), sc.Data)
	}
	return sc, nil
}

// ParseScenario decodes and validates a YAML scenario document.
func ParseScenario(raw []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, model.Invalid("scenario", "%v", err)
	}

	sc := &Scenario{Symbol: f.Symbol, Data: f.Data, Base: backtest.DefaultConfig(), Weights: f.Weights, Grid: f.Grid}
	if err := decodeOver(&f.Base, &sc.Base); err != nil {
		return nil, model.Invalid("base", "%v", err)
	}
	if err := sc.Base.Validate(); err != nil {
		return nil, err
	}
	if f.Weights != nil {
		if err := f.Weights.Validate(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(f.Configs))
	for i, entry := range f.Configs {
		if entry.Name == "" {
			return nil, model.Invalid("configs", "entry %d has no name", i)
		}
		if seen[entry.Name] {
			return nil, model.Invalid("configs", "duplicate name %q", entry.Name)
		}
		seen[entry.Name] = true

		cfg := sc.Base
		if err := decodeOver(&entry.Config, &cfg); err != nil {
			return nil, model.Invalid("configs."+entry.Name, "%v", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configs.%s: %w", entry.Name, err)
		}
		sc.Configs = append(sc.Configs, backtest.NamedConfig{Name: entry.Name, Config: cfg})
	}

	if sc.Grid != nil {
		if _, err := sc.Grid.Configs(sc.Base); err != nil {
			return nil, err
		}
	}
	if len(sc.Configs) == 0 && sc.Grid == nil {
		sc.Configs = []backtest.NamedConfig{{Name: "base", Config: sc.Base}}
	}
	return sc, nil
}

// decodeOver decodes node onto dst, leaving fields the node omits untouched.
func decodeOver(node *yaml.Node, dst *backtest.Config) error {
	if node.Kind == 0 {
		return nil
	}
	return node.Decode(dst)
}
