// Package world runs the fixed per-tick pipeline over the relevancy and
// hibernation systems.
package world

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/events/bus"
	"github.com/zeusync/openworld/internal/core/hibernation"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/relevancy"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/systems"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Lifecycle events published on the bus. Data is the components.ObjectID.
const (
	EventObjectUnhibernated   = "object.unhibernated"
	EventObjectPending        = "object.pending"
	EventObjectPendingAborted = "object.pending_aborted"
	EventObjectHibernated     = "object.hibernated"

	eventSource = "world"
)

type Config struct {
	Relevancy   relevancy.Config   `yaml:"relevancy" envPrefix:"RELEVANCY_"`
	Hibernation hibernation.Config `yaml:"hibernation" envPrefix:"HIBERNATION_"`

	// PositionComponent and PositionProperty name the vector property
	// relevancy reads object positions from.
	PositionComponent string `yaml:"position_component" env:"POSITION_COMPONENT"`
	PositionProperty  string `yaml:"position_property" env:"POSITION_PROPERTY"`
}

func DefaultConfig() Config {
	return Config{
		Relevancy:         relevancy.DefaultConfig(),
		Hibernation:       hibernation.DefaultConfig(),
		PositionComponent: "physics",
		PositionProperty:  "position",
	}
}

type Option func(*World)

func WithLogger(logger log.Log) Option {
	return func(w *World) { w.logger = logger }
}

func WithBus(eventBus bus.EventBus) Option {
	return func(w *World) { w.bus = eventBus }
}

// World owns the tick. Every call into it must come from the same
// goroutine.
type World struct {
	config  Config
	builder *components.Builder
	store   storage.Store
	sim     physics.Simulation
	bus     bus.EventBus
	logger  log.Log

	relevancy   *relevancy.System
	hibernation *hibernation.System

	pipeline []systems.System
	metrics  map[string]*systems.Metrics

	frame   uint64
	elapsed float64
}

func New(config Config, builder *components.Builder, store storage.Store, sim physics.Simulation, opts ...Option) (*World, error) {
	rel, err := relevancy.New(config.Relevancy)
	if err != nil {
		return nil, err
	}

	w := &World{
		config:      config,
		builder:     builder,
		store:       store,
		sim:         sim,
		relevancy:   rel,
		hibernation: hibernation.New(config.Hibernation, store),
		metrics:     make(map[string]*systems.Metrics),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Provide()
	}
	w.logger = w.logger.Named("world")
	if w.bus == nil {
		w.bus = bus.New()
	}
	w.bus.AddObserver(&deliveryObserver{logger: w.logger})

	rel.AddListener(w.hibernation)
	w.hibernation.AddListener(hibernation.Funcs{
		Unhibernate:  w.publisher(EventObjectUnhibernated),
		Pending:      w.publisher(EventObjectPending),
		PendingAbort: w.publisher(EventObjectPendingAborted),
		Hibernate:    w.publisher(EventObjectHibernated),
	})

	w.pipeline = []systems.System{
		systems.NewFunc("positions", w.syncPositions),
		w.relevancy,
		w.hibernation,
		systems.NewFunc("simulation", w.stepSimulation),
		systems.NewFunc("objects", w.updateObjects),
	}
	for _, s := range w.pipeline {
		w.metrics[s.Name()] = &systems.Metrics{}
	}
	return w, nil
}

func (w *World) publisher(eventType string) func(*systems.Context, *components.Object) {
	return func(ctx *systems.Context, obj *components.Object) {
		if err := w.bus.Publish(bus.NewEvent(eventType, eventSource, obj.ID())); err != nil {
			ctx.Logger.Warn("Lifecycle event handler failed",
				log.String("event", eventType),
				log.ObjectID(uint64(obj.ID())),
				log.Error(err),
			)
		}
	}
}

// Bootstrap seeds the store with objects and tracks every one of them,
// hibernated, at its current position.
func (w *World) Bootstrap(ctx context.Context, objects []*components.Object) error {
	if err := w.hibernation.Import(ctx, objects); err != nil {
		return err
	}
	for _, obj := range objects {
		w.relevancy.AddObject(obj.ID(), w.position(obj))
	}
	w.logger.Info("World bootstrapped", log.Int("objects", len(objects)))
	return nil
}

// Load tracks every object already in the store.
func (w *World) Load(ctx context.Context) error {
	entries, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list stored objects: %w", err)
	}
	for _, entry := range entries {
		obj, err := w.store.RetrieveByType(ctx, entry.ID, entry.Type)
		if err != nil {
			return fmt.Errorf("load object %d: %w", entry.ID, err)
		}
		w.hibernation.Manage(entry.ID)
		w.relevancy.AddObject(entry.ID, w.position(obj))
	}
	w.logger.Info("World loaded", log.Int("objects", len(entries)))
	return nil
}

// Tick runs one frame: position sync, relevancy, hibernation, simulation
// step, object updates. The first failing stage ends the frame.
func (w *World) Tick(ctx context.Context, deltaTime float64) error {
	tc := systems.NewContext(ctx, w.sim, w.logger)
	tc.Frame, tc.Time = w.frame, w.elapsed
	tc.Advance(deltaTime)
	w.frame, w.elapsed = tc.Frame, tc.Time

	for _, s := range w.pipeline {
		start := time.Now()
		err := s.Update(tc)
		w.metrics[s.Name()].Observe(time.Since(start), err)
		if err != nil {
			return fmt.Errorf("frame %d: %s: %w", tc.Frame, s.Name(), err)
		}
	}
	return nil
}

func (w *World) syncPositions(_ *systems.Context) error {
	for _, obj := range w.hibernation.RuntimeObjects() {
		c, ok := obj.Component(w.config.PositionComponent)
		if !ok {
			continue
		}
		if err := w.relevancy.UpdateObjectPosition(obj.ID(), c.Vector(w.config.PositionProperty)); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) stepSimulation(ctx *systems.Context) error {
	if w.sim != nil {
		w.sim.Step(ctx.DeltaTime)
	}
	return nil
}

func (w *World) updateObjects(ctx *systems.Context) error {
	for _, obj := range w.hibernation.RuntimeObjects() {
		if err := obj.Update(ctx); err != nil {
			return fmt.Errorf("object %d: %w", obj.ID(), err)
		}
	}
	return nil
}

func (w *World) position(obj *components.Object) physics.Vector {
	if c, ok := obj.Component(w.config.PositionComponent); ok {
		return c.Vector(w.config.PositionProperty)
	}
	return physics.Vector{}
}

func (w *World) Builder() *components.Builder { return w.builder }

func (w *World) Bus() bus.EventBus { return w.bus }

func (w *World) Relevancy() *relevancy.System { return w.relevancy }

func (w *World) Hibernation() *hibernation.System { return w.hibernation }

// Frame is the number of ticks run so far.
func (w *World) Frame() uint64 { return w.frame }

// Time is the accumulated simulation time in seconds.
func (w *World) Time() float64 { return w.elapsed }

// Stages lists the pipeline stage names in execution order.
func (w *World) Stages() []string {
	names := make([]string, len(w.pipeline))
	for i, s := range w.pipeline {
		names[i] = s.Name()
	}
	return names
}

// EventMetrics returns the lifecycle event counters of the bus.
func (w *World) EventMetrics() bus.EventBusMetrics { return w.bus.GetMetrics() }

// Metrics returns the execution metrics of a pipeline stage.
func (w *World) Metrics(stage string) (systems.Metrics, bool) {
	m, ok := w.metrics[stage]
	if !ok {
		return systems.Metrics{}, false
	}
	return *m, true
}

// deliveryObserver traces lifecycle event deliveries. Registering it also
// turns on the bus counters behind EventMetrics.
type deliveryObserver struct {
	logger log.Log
}

func (o *deliveryObserver) OnPublish(string, bus.Event) {}

func (o *deliveryObserver) OnDelivered(eventType string, handlers int, err error, duration time.Duration) {
	if err != nil {
		return
	}
	o.logger.Debug("Lifecycle event delivered",
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Duration("duration", duration),
	)
}
