// Package config loads the process configuration: defaults, then a YAML
// file, then OPENWORLD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/systems/physics"
	"github.com/zeusync/openworld/internal/core/world"
	"github.com/zeusync/openworld/internal/server"
)

// EnvPrefix prefixes every environment override, e.g. OPENWORLD_SERVER_TICK_RATE.
const EnvPrefix = "OPENWORLD_"

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type Config struct {
	Log     log.Config              `yaml:"log" envPrefix:"LOG_"`
	Server  server.Config           `yaml:"server" envPrefix:"SERVER_"`
	World   world.Config            `yaml:"world" envPrefix:"WORLD_"`
	Physics physics.KinematicConfig `yaml:"physics" envPrefix:"PHYSICS_"`
	Storage Storage                 `yaml:"storage" envPrefix:"STORAGE_"`
	Scene   Scene                   `yaml:"scene" envPrefix:"SCENE_"`
}

type Storage struct {
	// Driver is memory or sqlite.
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// Scene selects the initial objects when the store is empty: a YAML scene
// document when Path is set, otherwise Scatter random cubes.
type Scene struct {
	Path    string  `yaml:"path" env:"PATH"`
	Scatter int     `yaml:"scatter" env:"SCATTER"`
	Extent  float64 `yaml:"extent" env:"EXTENT"`
	Seed    uint64  `yaml:"seed" env:"SEED"`
}

func Default() Config {
	return Config{
		Log:     log.Config{Level: "info", Encoding: "json"},
		Server:  server.DefaultServerConfig(),
		World:   world.DefaultConfig(),
		Physics: physics.DefaultKinematicConfig(),
		Storage: Storage{Driver: StorageMemory},
		Scene:   Scene{Scatter: 64, Extent: 100, Seed: 1},
	}
}

// Load reads path, when given, over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("%w: server: %v", ErrInvalidConfig, err)
	}

	rel := c.World.Relevancy
	switch {
	case rel.RelevantDistance <= 0:
		return fmt.Errorf("%w: relevant distance must be positive", ErrInvalidConfig)
	case rel.GreyArea < 0:
		return fmt.Errorf("%w: grey area must not be negative", ErrInvalidConfig)
	case rel.ReferencePoints < 1 || rel.ReferencePoints > 32:
		return fmt.Errorf("%w: reference points must be within 1..32", ErrInvalidConfig)
	case c.World.Hibernation.PendingDuration < 0:
		return fmt.Errorf("%w: pending duration must not be negative", ErrInvalidConfig)
	case c.World.PositionComponent == "" || c.World.PositionProperty == "":
		return fmt.Errorf("%w: position component and property are required", ErrInvalidConfig)
	case c.Physics.MaxBodies <= 0:
		return fmt.Errorf("%w: max bodies must be positive", ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: sqlite storage needs a path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Scene.Scatter < 0 || c.Scene.Extent < 0 {
		return fmt.Errorf("%w: scene scatter and extent must not be negative", ErrInvalidConfig)
	}
	return nil
}
