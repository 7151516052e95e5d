package systems

import (
	"context"
	"time"

	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Context is threaded explicitly through a tick: into every system's
// Update and from there into object activation, deactivation and update
// hooks. It replaces any ambient simulation handle.
type Context struct {
	context.Context

	Simulation physics.Simulation
	Logger     log.Log

	// DeltaTime is the length of the current frame in seconds.
	DeltaTime float64
	// Frame counts ticks since the world started.
	Frame uint64
	// Time is the accumulated simulation time in seconds.
	Time float64
}

// NewContext builds a tick context. A nil logger is replaced by a no-op one.
func NewContext(ctx context.Context, sim physics.Simulation, logger log.Log) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Context{Context: ctx, Simulation: sim, Logger: logger}
}

// Advance moves the context to the next frame.
func (c *Context) Advance(deltaTime float64) {
	c.Frame++
	c.DeltaTime = deltaTime
	c.Time += deltaTime
}

// System is one stage of the fixed per-tick pipeline.
type System interface {
	Name() string
	Update(ctx *Context) error
}

// Func adapts a function to System.
type Func struct {
	name   string
	update func(ctx *Context) error
}

func NewFunc(name string, update func(ctx *Context) error) Func {
	return Func{name: name, update: update}
}

func (f Func) Name() string { return f.name }

func (f Func) Update(ctx *Context) error { return f.update(ctx) }

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
}

// Observe records one execution.
func (m *Metrics) Observe(elapsed time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += elapsed
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if elapsed > m.MaxExecutionTime {
		m.MaxExecutionTime = elapsed
	}
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
