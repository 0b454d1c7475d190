package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/components"
)

// OrbitSystem moves orbiting emitters around their vertical axis.
type OrbitSystem struct {
	filter *ecs.Filter2[components.Emitter, components.Orbit]
}

// NewOrbitSystem creates a new orbit system.
func NewOrbitSystem(w *ecs.World) *OrbitSystem {
	return &OrbitSystem{
		filter: ecs.NewFilter2[components.Emitter, components.Orbit](w),
	}
}

// Update advances each orbit by dt seconds and writes the emitter position.
func (s *OrbitSystem) Update(dt float64) {
	query := s.filter.Query()
	for query.Next() {
		em, orb := query.Get()
		orb.Angle = math.Mod(orb.Angle+orb.Sense*orb.Speed*dt, 360)
		em.Site.Position = OrbitPosition(*orb)
	}
}

// OrbitPosition returns the point on the orbit at its current angle.
func OrbitPosition(o components.Orbit) r3.Vec {
	a := o.Angle * math.Pi / 180
	return r3.Vec{
		X: o.Center.X + o.Radius*math.Cos(a),
		Y: o.Center.Y,
		Z: o.Center.Z + o.Radius*math.Sin(a),
	}
}
