package game

import (
	"math/rand/v2"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Scatter builds n cubes with ids 1..n, dropped from between 2 and 10
// units up at random points within extent of the origin.
func Scatter(builder *components.Builder, n int, extent float64, rng *rand.Rand) ([]*components.Object, error) {
	objects := make([]*components.Object, 0, n)
	for i := 1; i <= n; i++ {
		obj, err := builder.Build(components.ObjectID(i), TypeCube)
		if err != nil {
			return nil, err
		}

		c, _ := obj.Component(KindPhysics)
		position := physics.Vec(
			between(rng, -extent, extent),
			between(rng, -extent, extent),
			between(rng, 2, 10),
		)
		if err = c.Set(PropertyPosition, position); err != nil {
			return nil, err
		}
		if err = c.Set(PropertyScale, between(rng, 0.1, 1.0)); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
