package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fxnlabs/reduction-bench/internal/dataset"
	"github.com/fxnlabs/reduction-bench/internal/reduction"
)

// DefaultPath is where the CLI looks for a config file when --config is not
// given. A missing file at this path is not an error; defaults apply.
const DefaultPath = "config.yaml"

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Engine struct {
		LocalSize      int `yaml:"localSize"`
		GroupsMax      int `yaml:"groupsMax"`
		ItemsPerThread int `yaml:"itemsPerThread"`
	} `yaml:"engine"`
	Dataset struct {
		Size int    `yaml:"size"`
		Seed uint64 `yaml:"seed"`
	} `yaml:"dataset"`
	Server struct {
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"server"`
}

// Default returns the configuration the tool runs with when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Logger.Verbosity = "info"
	cfg.Engine.LocalSize = reduction.DefaultLocalSize
	cfg.Engine.GroupsMax = reduction.DefaultGroupsMax
	cfg.Engine.ItemsPerThread = reduction.DefaultItemsPerThread
	cfg.Dataset.Size = dataset.DefaultSize
	cfg.Dataset.Seed = dataset.DefaultSeed
	cfg.Server.ListenAddress = ":8080"
	return &cfg
}

// LoadConfig reads a YAML file and overlays it onto the defaults, so partial
// files only override the keys they name.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return config, nil
}

// LoadOrDefault loads the file at path. When the file does not exist and the
// path was not explicitly requested, the defaults are returned instead.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	return LoadConfig(path)
}

// Params returns the engine tunables held by the config.
func (c *Config) Params() reduction.Params {
	return reduction.Params{
		LocalSize:      c.Engine.LocalSize,
		GroupsMax:      c.Engine.GroupsMax,
		ItemsPerThread: c.Engine.ItemsPerThread,
	}
}
