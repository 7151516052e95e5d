// Package storage defines the persistent store hibernated objects are
// archived to.
package storage

import (
	"context"
	"errors"

	"github.com/zeusync/openworld/internal/core/components"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrTypeMismatch = errors.New("stored object has a different type")
)

// Entry identifies one stored object.
type Entry struct {
	ID   components.ObjectID
	Type string
}

// Store persists objects between hibernation and reactivation. Retrieve
// always returns a fresh object that shares nothing with the stored copy.
type Store interface {
	Retrieve(ctx context.Context, id components.ObjectID) (*components.Object, error)
	RetrieveByType(ctx context.Context, id components.ObjectID, typ string) (*components.Object, error)
	Store(ctx context.Context, id components.ObjectID, obj *components.Object) error
	// List returns every stored object in ascending id order.
	List(ctx context.Context) ([]Entry, error)
}
