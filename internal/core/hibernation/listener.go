package hibernation

import (
	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/systems"
)

// Listener observes lifecycle transitions. Notifications cannot fail.
type Listener interface {
	OnUnhibernateObject(ctx *systems.Context, obj *components.Object)
	OnHibernatePending(ctx *systems.Context, obj *components.Object)
	OnHibernatePendingAbort(ctx *systems.Context, obj *components.Object)
	OnHibernateObject(ctx *systems.Context, obj *components.Object)
}

// Funcs implements Listener with optional callbacks.
type Funcs struct {
	Unhibernate  func(ctx *systems.Context, obj *components.Object)
	Pending      func(ctx *systems.Context, obj *components.Object)
	PendingAbort func(ctx *systems.Context, obj *components.Object)
	Hibernate    func(ctx *systems.Context, obj *components.Object)
}

var _ Listener = Funcs{}

func (f Funcs) OnUnhibernateObject(ctx *systems.Context, obj *components.Object) {
	if f.Unhibernate != nil {
		f.Unhibernate(ctx, obj)
	}
}

func (f Funcs) OnHibernatePending(ctx *systems.Context, obj *components.Object) {
	if f.Pending != nil {
		f.Pending(ctx, obj)
	}
}

func (f Funcs) OnHibernatePendingAbort(ctx *systems.Context, obj *components.Object) {
	if f.PendingAbort != nil {
		f.PendingAbort(ctx, obj)
	}
}

func (f Funcs) OnHibernateObject(ctx *systems.Context, obj *components.Object) {
	if f.Hibernate != nil {
		f.Hibernate(ctx, obj)
	}
}
