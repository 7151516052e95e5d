package components

import (
	"errors"

	"github.com/zeusync/openworld/internal/core/properties"
)

var (
	// Schema errors

	ErrUnknownObjectType    = errors.New("unknown object type")
	ErrUnknownComponentKind = errors.New("unknown component kind")
	ErrDuplicateKind        = errors.New("duplicate component kind")

	// Property errors, shared with the properties package

	ErrUnknownProperty      = properties.ErrUnknownProperty
	ErrInvalidPropertyValue = properties.ErrInvalidPropertyValue
	ErrMissingProperty      = properties.ErrMissingProperty

	// Document errors

	ErrDuplicateObjectID = errors.New("duplicate object id")
	ErrMissingID         = errors.New("object record without id")
	ErrMalformedRecord   = errors.New("malformed record")
)
