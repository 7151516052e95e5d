package bus

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func makeHandler(c *int64) EventHandler {
	return func(e Event) error {
		atomic.AddInt64(c, 1)
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) OnPublish(string, Event)                       {}
func (nopObserver) OnDelivered(string, int, error, time.Duration) {}

func BenchmarkPublishSingleSubscriber(b *testing.B) {
	bus := New()
	var c int64
	_, _ = bus.Subscribe("object.hibernated", makeHandler(&c))
	e := NewEvent("object.hibernated", "bench", uint64(1))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(e)
	}
}

func BenchmarkPublishManySubscribers(b *testing.B) {
	for _, subs := range []int{1, 4, 16, 64, 256} {
		b.Run("subs="+strconv.Itoa(subs), func(b *testing.B) {
			bus := New()
			var c int64
			for i := 0; i < subs; i++ {
				_, _ = bus.Subscribe("tick", makeHandler(&c))
			}
			e := NewEvent("tick", "bench", nil)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bus.Publish(e)
			}
		})
	}
}

func BenchmarkObserverOverhead(b *testing.B) {
	bus := New()
	var c int64
	_, _ = bus.Subscribe("tick", makeHandler(&c))
	e := NewEvent("tick", "bench", nil)

	b.Run("no-observer", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = bus.Publish(e)
		}
	})
	b.Run("with-observer", func(b *testing.B) {
		obs := nopObserver{}
		bus.AddObserver(obs)
		defer bus.RemoveObserver(obs)
		for i := 0; i < b.N; i++ {
			_ = bus.Publish(e)
		}
	})
}

func BenchmarkSubscribeUnsubscribeChurn(b *testing.B) {
	bus := New()
	var c int64
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sub, _ := bus.Subscribe("tick", makeHandler(&c))
		_ = sub.Cancel()
	}
}
