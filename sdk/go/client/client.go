// Package client is a Go SDK for the openworld replication endpoint: it
// joins over WebSocket, sends movement input and mirrors the objects the
// server reports as relevant.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/server"
)

// Client represents one viewer connection
type Client struct {
	conn    *websocket.Conn
	codec   protocol.FrameCodec
	builder *components.Builder

	// Mirror of the last snapshot
	mirrorMutex sync.RWMutex
	objects     map[components.ObjectID]*components.Object
	last        server.Snapshot

	// Handlers
	snapshotHandlers []SnapshotHandler
	eventHandlers    map[EventType][]EventHandler
	handlerMutex     sync.RWMutex

	// Lifecycle
	connected atomic.Bool
	closed    atomic.Bool
	leaving   atomic.Bool
	done      chan struct{}

	// guards conn writes
	writeMu sync.Mutex

	config Config
	logger log.Log

	workerGroup sync.WaitGroup
}

// Config holds configuration for the client
type Config struct {
	// ServerURL is the ws:// or wss:// address of the /ws endpoint.
	ServerURL      string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		ServerURL:      "ws://localhost:8080/ws",
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: protocol.MaxFrameSize,
	}
}

// SnapshotHandler is called on the reader goroutine after the mirror has
// been updated.
type SnapshotHandler func(snap server.Snapshot) error

// EventHandler defines a function type for handling client events
type EventHandler func(event Event) error

// EventType represents different types of client events
type EventType string

const (
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Event represents a client event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Error     error
}

// NewClient creates a client that decodes snapshots with builder's schema,
// which must match the server's.
func NewClient(config Config, builder *components.Builder, logger log.Log) *Client {
	if logger == nil {
		logger = log.Provide()
	}
	return &Client{
		builder:       builder,
		objects:       make(map[components.ObjectID]*components.Object),
		eventHandlers: make(map[EventType][]EventHandler),
		done:          make(chan struct{}),
		config:        config,
		logger:        logger.With(log.String("component", "client")),
	}
}

// Connect dials the server and starts the reader.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if c.config.ServerURL == "" {
		return fmt.Errorf("%w: empty server url", ErrInvalidConfig)
	}
	if !c.connected.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}

	c.logger.Info("Connecting to server", log.String("url", c.config.ServerURL))

	dialCtx := ctx
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.config.ServerURL, nil)
	if err != nil {
		c.connected.Store(false)
		c.logger.Error("Failed to connect to server", log.String("url", c.config.ServerURL), log.Error(err))
		return err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.leaving.Store(false)

	c.workerGroup.Add(1)
	go c.readLoop()

	c.emitEvent(Event{Type: EventTypeConnected, Timestamp: time.Now()})
	return nil
}

// Disconnect closes the connection and waits for the reader to stop.
func (c *Client) Disconnect() error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.leaving.Store(true)
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout))
	c.writeMu.Unlock()
	_ = c.conn.Close()

	c.workerGroup.Wait()
	return nil
}

// Close disconnects and releases the client for good.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.connected.Load() {
		_ = c.Disconnect()
	}
	close(c.done)
	return nil
}

// Done is closed by Close.
func (c *Client) Done() <-chan struct{} { return c.done }

// SendInput reports the current movement keys.
func (c *Client) SendInput(in server.Input) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(in)
}

func (c *Client) OnSnapshot(handler SnapshotHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.snapshotHandlers = append(c.snapshotHandlers, handler)
}

func (c *Client) OnEvent(eventType EventType, handler EventHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], handler)
}

// Object returns the mirrored state of id.
func (c *Client) Object(id components.ObjectID) (*components.Object, bool) {
	c.mirrorMutex.RLock()
	defer c.mirrorMutex.RUnlock()
	obj, ok := c.objects[id]
	return obj, ok
}

// Objects lists mirrored ids in ascending order.
func (c *Client) Objects() []components.ObjectID {
	c.mirrorMutex.RLock()
	defer c.mirrorMutex.RUnlock()
	ids := make([]components.ObjectID, 0, len(c.objects))
	for id := range c.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Last is the most recent snapshot.
func (c *Client) Last() server.Snapshot {
	c.mirrorMutex.RLock()
	defer c.mirrorMutex.RUnlock()
	return c.last
}

func (c *Client) readLoop() {
	defer c.workerGroup.Done()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			c.clearMirror()
			c.disconnected(err)
			return
		}

		payload, err := c.codec.Decode(frame)
		if err == nil {
			var snap server.Snapshot
			if snap, err = server.DecodeSnapshot(c.builder, payload); err == nil {
				c.apply(snap)
				err = c.dispatch(snap)
			}
		}
		if err != nil {
			c.logger.Warn("Snapshot dropped", log.Error(err))
			c.emitEvent(Event{Type: EventTypeError, Timestamp: time.Now(), Error: err})
		}
	}
}

// apply folds snap into the mirror: changed objects are replaced, missing
// ones are forgotten.
func (c *Client) apply(snap server.Snapshot) {
	c.mirrorMutex.Lock()
	defer c.mirrorMutex.Unlock()

	seen := make(map[components.ObjectID]struct{}, len(snap.Objects))
	for _, entry := range snap.Objects {
		seen[entry.ID] = struct{}{}
		if entry.Changed {
			c.objects[entry.ID] = entry.Object
		}
	}
	for id := range c.objects {
		if _, ok := seen[id]; !ok {
			delete(c.objects, id)
		}
	}
	c.last = snap
}

func (c *Client) clearMirror() {
	c.mirrorMutex.Lock()
	defer c.mirrorMutex.Unlock()
	clear(c.objects)
}

func (c *Client) dispatch(snap server.Snapshot) error {
	c.handlerMutex.RLock()
	handlers := append([]SnapshotHandler(nil), c.snapshotHandlers...)
	c.handlerMutex.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) disconnected(err error) {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr) && closeErr.Code == websocket.CloseTryAgainLater:
		err = fmt.Errorf("%w: %s", ErrServerFull, closeErr.Text)
	case c.leaving.Load(), websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		err = nil
	}

	if err != nil {
		c.logger.Info("Disconnected from server", log.Error(err))
	} else {
		c.logger.Info("Disconnected from server")
	}
	c.emitEvent(Event{Type: EventTypeDisconnected, Timestamp: time.Now(), Error: err})
}

func (c *Client) emitEvent(event Event) {
	c.handlerMutex.RLock()
	handlers := append([]EventHandler(nil), c.eventHandlers[event.Type]...)
	c.handlerMutex.RUnlock()

	for _, h := range handlers {
		if err := h(event); err != nil {
			c.logger.Warn("Event handler failed", log.String("event", string(event.Type)), log.Error(err))
		}
	}
}
