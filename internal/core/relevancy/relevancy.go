package relevancy

import (
	"fmt"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/systems"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// MaxReferencePoints is the width of Mask.
const MaxReferencePoints = 32

// Mask has bit i set when an object is relevant to reference point i.
type Mask uint32

// Has reports whether bit i is set.
func (m Mask) Has(i int) bool { return m&(1<<uint(i)) != 0 }

// Listener is told about every mask change before the change is stored.
type Listener interface {
	OnRelevancyChange(ctx *systems.Context, id components.ObjectID, old, new Mask) error
}

type ListenerFunc func(ctx *systems.Context, id components.ObjectID, old, new Mask) error

func (f ListenerFunc) OnRelevancyChange(ctx *systems.Context, id components.ObjectID, old, new Mask) error {
	return f(ctx, id, old, new)
}

type Config struct {
	// RelevantDistance is the planar distance below which an object is
	// relevant to a reference point.
	RelevantDistance float64 `yaml:"relevant_distance" env:"RELEVANT_DISTANCE"`
	// GreyArea widens RelevantDistance for objects that were relevant to
	// any reference point on the previous pass.
	GreyArea        float64 `yaml:"grey_area" env:"GREY_AREA"`
	ReferencePoints int     `yaml:"reference_points" env:"REFERENCE_POINTS"`
}

func DefaultConfig() Config {
	return Config{
		RelevantDistance: 25,
		GreyArea:         5,
		ReferencePoints:  MaxReferencePoints,
	}
}

// ReferencePoint is a moving origin relevancy is measured against.
type ReferencePoint struct {
	Active   bool
	Position physics.Vector
}

type entry struct {
	position physics.Vector
	mask     Mask
}

var _ systems.System = (*System)(nil)

// System computes per-object relevancy masks with a flat scan over every
// tracked object and reference point.
type System struct {
	config Config

	entries map[components.ObjectID]*entry
	order   []components.ObjectID

	points    []ReferencePoint
	claimed   []bool
	listeners []Listener
}

func New(config Config) (*System, error) {
	if config.ReferencePoints < 0 || config.ReferencePoints > MaxReferencePoints {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrReferencePointCapacityExceeded, config.ReferencePoints, MaxReferencePoints)
	}
	return &System{
		config:  config,
		entries: make(map[components.ObjectID]*entry),
		points:  make([]ReferencePoint, config.ReferencePoints),
		claimed: make([]bool, config.ReferencePoints),
	}, nil
}

func (s *System) Name() string { return "relevancy" }

// AddListener registers l. Listeners run in registration order.
func (s *System) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// AddObject starts tracking id at position with an empty mask. Adding a
// tracked id only moves it.
func (s *System) AddObject(id components.ObjectID, position physics.Vector) {
	if e, ok := s.entries[id]; ok {
		e.position = position
		return
	}
	s.entries[id] = &entry{position: position}
	s.order = append(s.order, id)
}

func (s *System) RemoveObject(id components.ObjectID) {
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, tracked := range s.order {
		if tracked == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *System) UpdateObjectPosition(id components.ObjectID, position physics.Vector) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	e.position = position
	return nil
}

// Mask returns the last stored mask of id.
func (s *System) Mask(id components.ObjectID) (Mask, bool) {
	e, ok := s.entries[id]
	if !ok {
		return 0, false
	}
	return e.mask, true
}

func (s *System) Len() int { return len(s.order) }

// Update recomputes every mask. A listener error aborts the pass; masks of
// the failing object and all later ones are left as they were.
func (s *System) Update(ctx *systems.Context) error {
	for _, id := range s.order {
		e := s.entries[id]

		threshold := s.config.RelevantDistance
		if e.mask != 0 {
			threshold += s.config.GreyArea
		}

		var mask Mask
		for i, point := range s.points {
			if point.Active && physics.Distance2D(point.Position, e.position) < threshold {
				mask |= 1 << uint(i)
			}
		}
		if mask == e.mask {
			continue
		}

		ctx.Logger.Debug("Relevancy changed",
			log.ObjectID(uint64(id)),
			log.Mask("old", uint32(e.mask)),
			log.Mask("new", uint32(mask)),
		)
		for _, l := range s.listeners {
			if err := l.OnRelevancyChange(ctx, id, e.mask, mask); err != nil {
				return fmt.Errorf("relevancy change of %d: %w", id, err)
			}
		}
		e.mask = mask
	}
	return nil
}

// Capacity is the number of reference point slots.
func (s *System) Capacity() int { return len(s.points) }

// AcquireReferencePoint claims the first free slot and activates it at
// position.
func (s *System) AcquireReferencePoint(position physics.Vector) (int, error) {
	for i, claimed := range s.claimed {
		if !claimed {
			s.claimed[i] = true
			s.points[i] = ReferencePoint{Active: true, Position: position}
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: all %d slots claimed", ErrReferencePointCapacityExceeded, len(s.points))
}

func (s *System) ReleaseReferencePoint(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.claimed[i] = false
	s.points[i] = ReferencePoint{}
	return nil
}

func (s *System) SetReferencePoint(i int, active bool, position physics.Vector) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.points[i] = ReferencePoint{Active: active, Position: position}
	return nil
}

// MoveReferencePoint offsets point i by delta.
func (s *System) MoveReferencePoint(i int, delta physics.Vector) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.points[i].Position = s.points[i].Position.Add(delta)
	return nil
}

func (s *System) ReferencePoint(i int) (ReferencePoint, bool) {
	if i < 0 || i >= len(s.points) {
		return ReferencePoint{}, false
	}
	return s.points[i], true
}

func (s *System) check(i int) error {
	if i < 0 || i >= len(s.points) {
		return fmt.Errorf("%w: %d", ErrInvalidReferencePoint, i)
	}
	return nil
}
