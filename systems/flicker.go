package systems

import (
	"github.com/mlange-42/ark/ecs"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/smoke/components"
)

// FlickerSystem modulates emitter gain with simplex noise so flames and
// plumes pulse irregularly.
type FlickerSystem struct {
	filter *ecs.Filter2[components.Emitter, components.Flicker]
	noise  opensimplex.Noise
	time   float64
}

// NewFlickerSystem creates a flicker system with a seeded noise source.
func NewFlickerSystem(w *ecs.World, seed int64) *FlickerSystem {
	return &FlickerSystem{
		filter: ecs.NewFilter2[components.Emitter, components.Flicker](w),
		noise:  opensimplex.New(seed),
	}
}

// Update advances the noise clock by dt seconds and sets each emitter's gain.
func (s *FlickerSystem) Update(dt float64) {
	s.time += dt
	query := s.filter.Query()
	for query.Next() {
		em, fl := query.Get()
		em.Gain = s.Gain(*fl)
	}
}

// Gain returns the gain for fl at the current noise time, never negative.
func (s *FlickerSystem) Gain(fl components.Flicker) float64 {
	n := s.noise.Eval2(s.time*fl.Frequency, fl.Offset)
	return max(0, 1+fl.Amplitude*n)
}

// Reset rewinds the noise clock.
func (s *FlickerSystem) Reset() {
	s.time = 0
}
