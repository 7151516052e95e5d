package injector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/google/wire"

	"github.com/zeusync/openworld/internal/config"
	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/storage/sqlite"
	"github.com/zeusync/openworld/internal/core/systems/physics"
	"github.com/zeusync/openworld/internal/core/world"
	"github.com/zeusync/openworld/internal/game"
	"github.com/zeusync/openworld/internal/server"
)

// App is the fully wired server process.
type App struct {
	Logger *log.Logger
	World  *world.World
	Server *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	game.NewBuilder,
	ProvideStore,
	ProvideSimulation,
	ProvideWorld,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return log.New(cfg.Log)
}

// ProvideStore opens the configured archive. The cleanup closes it.
func ProvideStore(ctx context.Context, cfg config.Config, builder *components.Builder) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.Path, builder)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return storage.NewMemory(builder), func() {}, nil
	}
}

func ProvideSimulation(cfg config.Config) physics.Simulation {
	return physics.NewKinematic(cfg.Physics)
}

// ProvideWorld builds the world and fills it: from the store when it already
// holds objects, otherwise from the configured scene.
func ProvideWorld(
	ctx context.Context,
	cfg config.Config,
	builder *components.Builder,
	store storage.Store,
	sim physics.Simulation,
	logger log.Log,
) (*world.World, error) {
	w, err := world.New(cfg.World, builder, store, sim, world.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return w, w.Load(ctx)
	}

	objects, err := scene(cfg.Scene, builder)
	if err != nil {
		return nil, err
	}
	return w, w.Bootstrap(ctx, objects)
}

func scene(cfg config.Scene, builder *components.Builder) ([]*components.Object, error) {
	if cfg.Path == "" {
		return game.Scatter(builder, cfg.Scatter, cfg.Extent, rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)))
	}

	file, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer func() { _ = file.Close() }()

	doc, err := components.LoadDocument(file)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", cfg.Path, err)
	}
	return builder.Decode(doc)
}

func ProvideServer(cfg config.Config, w *world.World, logger log.Log) *server.Server {
	return server.NewServer(cfg.Server, w, logger)
}
