package hibernation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/relevancy"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/systems"
)

// State of a managed object.
type State uint8

const (
	Unmanaged State = iota
	Hibernated
	Active
	PendingHibernation
)

func (s State) String() string {
	switch s {
	case Hibernated:
		return "hibernated"
	case Active:
		return "active"
	case PendingHibernation:
		return "pending_hibernation"
	}
	return "unmanaged"
}

type Config struct {
	// PendingDuration is how long, in seconds, an object stays pending
	// after it lost relevancy before it is archived.
	PendingDuration float64 `yaml:"pending_duration" env:"PENDING_DURATION"`
}

func DefaultConfig() Config {
	return Config{PendingDuration: 1.0}
}

// elapsedEpsilon absorbs the drift of summing frame deltas, so ten 0.1s
// frames reach a 1s duration.
const elapsedEpsilon = 1e-9

type pendingEntry struct {
	elapsed float64
}

var (
	_ systems.System     = (*System)(nil)
	_ relevancy.Listener = (*System)(nil)
)

// System moves objects between the persistent store and the runtime set.
//
//	Hibernated -> Active -> PendingHibernation -> Hibernated (commit)
//	                                           -> Active (abort)
type System struct {
	config Config
	store  storage.Store

	managed   map[components.ObjectID]struct{}
	runtime   map[components.ObjectID]*components.Object
	pending   map[components.ObjectID]*pendingEntry
	listeners []Listener
}

func New(config Config, store storage.Store) *System {
	return &System{
		config:  config,
		store:   store,
		managed: make(map[components.ObjectID]struct{}),
		runtime: make(map[components.ObjectID]*components.Object),
		pending: make(map[components.ObjectID]*pendingEntry),
	}
}

func (s *System) Name() string { return "hibernation" }

// AddListener registers l. Listeners run in registration order.
func (s *System) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Import seeds the store with objects and puts them under management, all
// hibernated.
func (s *System) Import(ctx context.Context, objects []*components.Object) error {
	for _, obj := range objects {
		if err := s.store.Store(ctx, obj.ID(), obj); err != nil {
			return fmt.Errorf("import object %d: %w", obj.ID(), err)
		}
		s.managed[obj.ID()] = struct{}{}
	}
	return nil
}

// Manage puts ids that are already in the store under management.
func (s *System) Manage(ids ...components.ObjectID) {
	for _, id := range ids {
		s.managed[id] = struct{}{}
	}
}

// OnRelevancyChange drives the state machine from relevancy masks.
func (s *System) OnRelevancyChange(ctx *systems.Context, id components.ObjectID, old, new relevancy.Mask) error {
	if _, ok := s.managed[id]; !ok {
		return fmt.Errorf("%w: %d", ErrRelevancyChangeForUnknownObject, id)
	}

	switch {
	case old == 0 && new != 0:
		return s.activate(ctx, id)
	case old != 0 && new == 0:
		return s.schedule(ctx, id)
	}
	return nil
}

func (s *System) activate(ctx *systems.Context, id components.ObjectID) error {
	if _, ok := s.pending[id]; ok {
		delete(s.pending, id)
		obj := s.runtime[id]
		ctx.Logger.Debug("Hibernation aborted", log.ObjectID(uint64(id)))
		for _, l := range s.listeners {
			l.OnHibernatePendingAbort(ctx, obj)
		}
		return nil
	}
	if _, ok := s.runtime[id]; ok {
		return nil
	}

	obj, err := s.store.Retrieve(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %d: %v", ErrObjectNotInStore, id, err)
	}
	if err != nil {
		return fmt.Errorf("retrieve object %d: %w", id, err)
	}

	s.runtime[id] = obj
	ctx.Logger.Debug("Object unhibernated", log.ObjectID(uint64(id)), log.String("type", obj.Type()))
	for _, l := range s.listeners {
		l.OnUnhibernateObject(ctx, obj)
	}

	if err = obj.Activate(ctx); err != nil {
		// Activate has already rolled back; listeners that saw the object
		// arrive see it leave again, and the stored copy is untouched.
		delete(s.runtime, id)
		ctx.Logger.Warn("Object activation failed", log.ObjectID(uint64(id)), log.Error(err))
		for _, l := range s.listeners {
			l.OnHibernateObject(ctx, obj)
		}
		return fmt.Errorf("activate object %d: %w", id, err)
	}
	return nil
}

func (s *System) schedule(ctx *systems.Context, id components.ObjectID) error {
	if _, ok := s.pending[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicatePendingHibernation, id)
	}
	obj, ok := s.runtime[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrObjectNotActive, id)
	}

	s.pending[id] = &pendingEntry{}
	ctx.Logger.Debug("Hibernation pending", log.ObjectID(uint64(id)))
	for _, l := range s.listeners {
		l.OnHibernatePending(ctx, obj)
	}
	return nil
}

// Update advances every pending entry by ctx.DeltaTime and commits the
// expired ones in ascending id order. A failed commit leaves the object
// active and pending so a later Update tries again.
func (s *System) Update(ctx *systems.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	ids := make([]components.ObjectID, 0, len(s.pending))
	for id, entry := range s.pending {
		entry.elapsed += ctx.DeltaTime
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if s.pending[id].elapsed+elapsedEpsilon < s.config.PendingDuration {
			continue
		}
		if err := s.commit(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// commit hibernates id in two phases: deactivate and persist first, and only
// once the store accepted the object notify OnHibernateObject and drop it
// from the runtime set. Listeners therefore never hear of a hibernation
// that a store failure later undoes.
func (s *System) commit(ctx *systems.Context, id components.ObjectID) error {
	obj := s.runtime[id]

	if err := obj.Deactivate(ctx); err != nil {
		return fmt.Errorf("deactivate object %d: %w", id, err)
	}

	if err := s.store.Store(ctx, id, obj); err != nil {
		err = fmt.Errorf("store object %d: %w", id, err)
		if restoreErr := obj.Activate(ctx); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("reactivate object %d: %w", id, restoreErr))
		}
		ctx.Logger.Warn("Hibernation commit failed", log.ObjectID(uint64(id)), log.Error(err))
		return err
	}

	ctx.Logger.Debug("Object hibernated", log.ObjectID(uint64(id)))
	for _, l := range s.listeners {
		l.OnHibernateObject(ctx, obj)
	}
	delete(s.runtime, id)
	delete(s.pending, id)
	return nil
}

// State reports where id is in the lifecycle.
func (s *System) State(id components.ObjectID) State {
	if _, ok := s.managed[id]; !ok {
		return Unmanaged
	}
	if _, ok := s.pending[id]; ok {
		return PendingHibernation
	}
	if _, ok := s.runtime[id]; ok {
		return Active
	}
	return Hibernated
}

func (s *System) IsPending(id components.ObjectID) bool {
	_, ok := s.pending[id]
	return ok
}

// Object returns the runtime object of id.
func (s *System) Object(id components.ObjectID) (*components.Object, bool) {
	obj, ok := s.runtime[id]
	return obj, ok
}

// RuntimeObjects returns the active objects in ascending id order.
func (s *System) RuntimeObjects() []*components.Object {
	objects := make([]*components.Object, 0, len(s.runtime))
	for _, obj := range s.runtime {
		objects = append(objects, obj)
	}
	slices.SortFunc(objects, func(a, b *components.Object) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return objects
}

func (s *System) RuntimeCount() int { return len(s.runtime) }
