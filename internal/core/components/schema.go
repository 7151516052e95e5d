package components

import (
	"fmt"
	"slices"
	"sort"
)

// Schema maps kind names to kinds and object types to their ordered kind
// lists. It is immutable once built.
type Schema struct {
	kinds     map[string]*Kind
	types     map[string][]string
	kindNames []string
	typeNames []string
}

// NewSchema validates that every kind referenced by a type exists.
func NewSchema(kinds []*Kind, types map[string][]string) (*Schema, error) {
	s := &Schema{
		kinds: make(map[string]*Kind, len(kinds)),
		types: make(map[string][]string, len(types)),
	}

	for _, k := range kinds {
		if _, exists := s.kinds[k.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKind, k.Name())
		}
		s.kinds[k.Name()] = k
		s.kindNames = append(s.kindNames, k.Name())
	}
	sort.Strings(s.kindNames)

	for typ, kindNames := range types {
		if typ == "" {
			return nil, fmt.Errorf("%w: empty object type name", ErrMalformedRecord)
		}
		seen := make(map[string]struct{}, len(kindNames))
		for _, name := range kindNames {
			if _, ok := s.kinds[name]; !ok {
				return nil, fmt.Errorf("%w: %s in type %s", ErrUnknownComponentKind, name, typ)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: %s listed twice in type %s", ErrDuplicateKind, name, typ)
			}
			seen[name] = struct{}{}
		}
		s.types[typ] = slices.Clone(kindNames)
		s.typeNames = append(s.typeNames, typ)
	}
	sort.Strings(s.typeNames)

	return s, nil
}

func MustNewSchema(kinds []*Kind, types map[string][]string) *Schema {
	s, err := NewSchema(kinds, types)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Kind(name string) (*Kind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

// Kinds returns all kinds sorted by name.
func (s *Schema) Kinds() []*Kind {
	kinds := make([]*Kind, len(s.kindNames))
	for i, name := range s.kindNames {
		kinds[i] = s.kinds[name]
	}
	return kinds
}

// Type returns the ordered kind names of an object type.
func (s *Schema) Type(name string) ([]string, bool) {
	kinds, ok := s.types[name]
	return kinds, ok
}

// Types returns all object type names sorted.
func (s *Schema) Types() []string { return s.typeNames }

// TypeIndex is the position of typ in Types. Used as a compact type tag on
// the wire.
func (s *Schema) TypeIndex(typ string) (int, bool) {
	i, found := slices.BinarySearch(s.typeNames, typ)
	return i, found
}

func (s *Schema) TypeName(index int) (string, bool) {
	if index < 0 || index >= len(s.typeNames) {
		return "", false
	}
	return s.typeNames[index], true
}
