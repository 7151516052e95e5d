package components

import (
	"fmt"
	"sort"

	"github.com/zeusync/openworld/internal/core/properties"
)

// Builder creates objects from a schema and converts them to and from
// document records.
type Builder struct {
	schema *Schema
}

func NewBuilder(schema *Schema) *Builder {
	return &Builder{schema: schema}
}

func (b *Builder) Schema() *Schema { return b.schema }

// Build creates an object of type typ with one default component per kind,
// in declaration order.
func (b *Builder) Build(id ObjectID, typ string) (*Object, error) {
	kindNames, ok := b.schema.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, typ)
	}

	obj := &Object{
		id:         id,
		typ:        typ,
		components: make([]*Component, len(kindNames)),
		byKind:     make(map[string]*Component, len(kindNames)),
	}
	for i, name := range kindNames {
		c := NewComponent(b.schema.kinds[name])
		obj.components[i] = c
		obj.byKind[name] = c
	}
	return obj, nil
}

// Decode builds every object of doc. Either all records decode or none are
// returned.
func (b *Builder) Decode(doc *Document) ([]*Object, error) {
	objects := make([]*Object, 0, len(doc.Objects))
	seen := make(map[ObjectID]struct{}, len(doc.Objects))

	for i, rec := range doc.Objects {
		if rec.ID == nil {
			return nil, fmt.Errorf("%w: record %d", ErrMissingID, i)
		}
		id := ObjectID(*rec.ID)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateObjectID, id)
		}
		seen[id] = struct{}{}

		obj, err := b.DecodeObject(rec)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// DecodeObject builds a single object from its record.
func (b *Builder) DecodeObject(rec ObjectRecord) (*Object, error) {
	if rec.ID == nil {
		return nil, ErrMissingID
	}
	if rec.Type == "" {
		return nil, fmt.Errorf("%w: object %d has no type", ErrMalformedRecord, *rec.ID)
	}
	obj, err := b.Build(ObjectID(*rec.ID), rec.Type)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", *rec.ID, err)
	}
	if err = b.Apply(obj, rec); err != nil {
		return nil, err
	}
	return obj, nil
}

type assignment struct {
	component *Component
	slot      int
	value     any
}

// Apply assigns the component records of rec to the existing components of
// obj. Nothing is assigned unless every property resolves and parses.
func (b *Builder) Apply(obj *Object, rec ObjectRecord) error {
	var pending []assignment

	for _, crec := range rec.Components {
		if crec.Kind == "" {
			return fmt.Errorf("%w: object %d: component without kind", ErrMalformedRecord, obj.id)
		}
		if _, known := b.schema.kinds[crec.Kind]; !known {
			return fmt.Errorf("%w: object %d: %q", ErrUnknownComponentKind, obj.id, crec.Kind)
		}
		c, ok := obj.byKind[crec.Kind]
		if !ok {
			return fmt.Errorf("%w: object %d: %q is not part of type %s", ErrUnknownComponentKind, obj.id, crec.Kind, obj.typ)
		}

		for _, prec := range crec.Properties {
			if prec.Name == "" {
				return fmt.Errorf("%w: object %d: %s: property without name", ErrMalformedRecord, obj.id, crec.Kind)
			}
			slot, ok := c.kind.index[prec.Name]
			if !ok {
				return fmt.Errorf("%w: object %d: %s.%s", ErrUnknownProperty, obj.id, crec.Kind, prec.Name)
			}
			if prec.Value == nil {
				return fmt.Errorf("%w: object %d: %s.%s", ErrMissingProperty, obj.id, crec.Kind, prec.Name)
			}

			def := c.kind.defs[slot]
			raw, err := def.Parse(*prec.Value)
			if err != nil {
				return fmt.Errorf("object %d: %s.%w", obj.id, crec.Kind, err)
			}
			value, err := def.Coerce(raw)
			if err != nil {
				return fmt.Errorf("object %d: %w", obj.id, err)
			}
			pending = append(pending, assignment{component: c, slot: slot, value: value})
		}
	}

	for _, a := range pending {
		a.component.values[a.slot] = a.value
	}
	return nil
}

// Encode produces a document with every property, constants included,
// objects in ascending id order.
func (b *Builder) Encode(objects []*Object) *Document {
	sorted := make([]*Object, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	doc := &Document{Objects: make([]ObjectRecord, 0, len(sorted))}
	for _, obj := range sorted {
		doc.Objects = append(doc.Objects, b.EncodeObject(obj))
	}
	return doc
}

func (b *Builder) EncodeObject(obj *Object) ObjectRecord {
	id := uint64(obj.id)
	rec := ObjectRecord{
		ID:         &id,
		Type:       obj.typ,
		Components: make([]ComponentRecord, 0, len(obj.components)),
	}
	for _, c := range obj.components {
		crec := ComponentRecord{
			Kind:       c.kind.name,
			Version:    c.kind.version,
			Properties: make([]PropertyRecord, 0, len(c.values)),
		}
		for i, def := range c.kind.defs {
			text := properties.Format(def.Type(), c.values[i])
			crec.Properties = append(crec.Properties, PropertyRecord{Name: def.Name(), Value: &text})
		}
		rec.Components = append(rec.Components, crec)
	}
	return rec
}
