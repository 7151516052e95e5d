package relevancy

import "errors"

var (
	ErrReferencePointCapacityExceeded = errors.New("reference point capacity exceeded")
	ErrInvalidReferencePoint          = errors.New("invalid reference point")
	ErrUnknownObject                  = errors.New("object is not tracked by relevancy")
)
