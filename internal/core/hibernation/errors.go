package hibernation

import "errors"

var (
	ErrDuplicatePendingHibernation     = errors.New("duplicate pending hibernation")
	ErrRelevancyChangeForUnknownObject = errors.New("relevancy change for unknown object")
	ErrObjectNotInStore                = errors.New("object missing from store")
	ErrObjectNotActive                 = errors.New("object is not active")
)
