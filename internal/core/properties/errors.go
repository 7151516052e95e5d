package properties

import "errors"

var (
	// Definition errors

	ErrInvalidDefinition = errors.New("invalid property definition")

	// Value errors

	ErrUnknownProperty      = errors.New("unknown property")
	ErrInvalidPropertyValue = errors.New("invalid property value")
	ErrMissingProperty      = errors.New("missing property")
)
