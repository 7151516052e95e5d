package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/events/bus"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems/physics"
	"github.com/zeusync/openworld/internal/core/world"
)

// Config holds server configuration
type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	// TickRate is the number of world ticks per second.
	TickRate int `yaml:"tick_rate" env:"TICK_RATE"`

	// MoveSpeed is how far a reference point travels per second of held input.
	MoveSpeed  float64 `yaml:"move_speed" env:"MOVE_SPEED"`
	JumpHeight float64 `yaml:"jump_height" env:"JUMP_HEIGHT"`

	// Compress enables LZ4 on snapshot frames.
	Compress       bool          `yaml:"compress" env:"COMPRESS"`
	SendBuffer     int           `yaml:"send_buffer" env:"SEND_BUFFER"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8080",
		TickRate:       30,
		MoveSpeed:      10,
		JumpHeight:     1,
		Compress:       true,
		SendBuffer:     8,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 4 << 10,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick rate must be positive", ErrInvalidConfig)
	case c.MoveSpeed < 0:
		return fmt.Errorf("%w: move speed must not be negative", ErrInvalidConfig)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send buffer must be positive", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Server replicates the runtime object set to WebSocket clients. Each
// client owns one relevancy reference point for as long as it is connected.
//
// The world is only touched from the goroutine running Run; connection
// goroutines talk to it through the command queue.
type Server struct {
	config Config
	world  *world.World
	logger log.Log
	codec  protocol.FrameCodec

	commands chan command
	done     chan struct{}
	doneOnce sync.Once
	running  atomic.Bool

	// owned by the tick goroutine
	sessions map[string]*session
	sequence uint64
	scratch  []byte

	connected atomic.Int64
}

func NewServer(config Config, w *world.World, logger log.Log) *Server {
	if logger == nil {
		logger = log.Provide()
	}
	s := &Server{
		config:   config,
		world:    w,
		logger:   logger.With(log.String("component", "server")),
		codec:    protocol.FrameCodec{Compress: config.Compress},
		commands: make(chan command, 256),
		done:     make(chan struct{}),
		sessions: make(map[string]*session),
	}

	// bus delivery happens inside world.Tick, on the tick goroutine
	_, _ = w.Bus().Subscribe(world.EventObjectHibernated, func(e bus.Event) error {
		id, ok := e.Data().(components.ObjectID)
		if !ok {
			return nil
		}
		for _, sess := range s.sessions {
			delete(sess.digests, id)
		}
		return nil
	})

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("tick_rate", config.TickRate),
		log.Int("max_clients", w.Relevancy().Capacity()))
	return s
}

// Handler serves the WebSocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves HTTP until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", log.String("addr", s.config.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Run ticks the world at the configured rate until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrServerClosed
	default:
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer s.shutdown()

	interval := time.Second / time.Duration(s.config.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Tick loop started", log.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logSummary()
			return nil
		case <-ticker.C:
			if err := s.Step(ctx, interval.Seconds()); err != nil {
				return err
			}
		}
	}
}

func (s *Server) logSummary() {
	events := s.world.EventMetrics()
	s.logger.Info("Tick loop stopped",
		log.Uint64("frames", s.world.Frame()),
		log.Uint64("events", events.Published),
		log.Uint64("event_errors", events.Errors),
	)
	for _, stage := range s.world.Stages() {
		m, _ := s.world.Metrics(stage)
		s.logger.Debug("Stage metrics",
			log.String("stage", stage),
			log.Uint64("runs", m.ExecutionCount),
			log.Duration("avg", m.AverageExecutionTime),
			log.Duration("max", m.MaxExecutionTime),
			log.Uint64("errors", m.ErrorCount),
		)
	}
}

// Step runs a single frame: queued commands, input, world tick, snapshots.
// It must only be called from the goroutine that owns the world.
func (s *Server) Step(ctx context.Context, deltaTime float64) error {
	s.drain()
	s.applyInput(deltaTime)

	if err := s.world.Tick(ctx, deltaTime); err != nil {
		return err
	}
	return s.broadcast()
}

// Connected is the number of joined clients.
func (s *Server) Connected() int { return int(s.connected.Load()) }

func (s *Server) drain() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Server) apply(cmd command) {
	sess := cmd.session
	switch cmd.kind {
	case commandJoin:
		point, err := s.world.Relevancy().AcquireReferencePoint(physics.Vector{})
		if err != nil {
			cmd.reply <- fmt.Errorf("%w: %v", ErrMaxClientsReached, err)
			return
		}
		sess.point = point
		s.sessions[sess.id] = sess
		s.connected.Add(1)
		s.logger.Info("Client joined", log.String("client_id", sess.id), log.Int("reference_point", point))
		cmd.reply <- nil

	case commandLeave:
		if _, ok := s.sessions[sess.id]; !ok {
			return
		}
		_ = s.world.Relevancy().ReleaseReferencePoint(sess.point)
		delete(s.sessions, sess.id)
		close(sess.send)
		s.connected.Add(-1)
		s.logger.Info("Client left",
			log.String("client_id", sess.id),
			log.Duration("session", time.Since(sess.connectedAt)))

	case commandInput:
		if _, ok := s.sessions[sess.id]; ok {
			sess.input = cmd.input
		}
	}
}

func (s *Server) applyInput(deltaTime float64) {
	rel := s.world.Relevancy()
	step := s.config.MoveSpeed * deltaTime
	for _, sess := range s.sessions {
		point, ok := rel.ReferencePoint(sess.point)
		if !ok {
			continue
		}
		in := sess.input
		position := point.Position
		position.X += step * (axis(in.Right) - axis(in.Left))
		position.Y += step * (axis(in.Up) - axis(in.Down))
		position.Z = 0
		if in.Jump {
			position.Z = s.config.JumpHeight
		}
		_ = rel.SetReferencePoint(sess.point, true, position)
	}
}

func axis(held bool) float64 {
	if held {
		return 1
	}
	return 0
}

func (s *Server) broadcast() error {
	if len(s.sessions) == 0 {
		return nil
	}
	s.sequence++

	hib := s.world.Hibernation()
	schema := s.world.Builder().Schema()
	runtime := hib.RuntimeObjects()
	objects := make([]replicated, 0, len(runtime))
	for _, obj := range runtime {
		r, buf, err := prepare(schema, obj, hib.IsPending(obj.ID()), s.scratch)
		s.scratch = buf
		if err != nil {
			return fmt.Errorf("replicate object %d: %w", obj.ID(), err)
		}
		objects = append(objects, r)
	}

	for _, sess := range s.sessions {
		point, _ := s.world.Relevancy().ReferencePoint(sess.point)
		stream := protocol.NewByteWriter(nil)
		if err := encodeSnapshot(stream, s.sequence, point.Position, objects, sess.digests); err != nil {
			return err
		}
		frame, err := s.codec.Encode(stream.Bytes())
		if err != nil {
			return err
		}

		select {
		case sess.send <- frame:
		default:
			// the client will get a full snapshot once it catches up
			sess.resetDigests()
			s.logger.Debug("Dropped snapshot for slow client", log.String("client_id", sess.id))
		}
	}
	return nil
}

func (s *Server) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })
	for id, sess := range s.sessions {
		close(sess.send)
		delete(s.sessions, id)
	}
	s.connected.Store(0)
	s.running.Store(false)
}

// enqueue hands cmd to the tick goroutine. It fails once Run has returned.
func (s *Server) enqueue(cmd command) bool {
	select {
	case s.commands <- cmd:
		return true
	case <-s.done:
		return false
	}
}
