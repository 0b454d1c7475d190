package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/smoke/components"
)

// BurstSystem advances burst timers.
type BurstSystem struct {
	filter *ecs.Filter1[components.Burst]
}

// NewBurstSystem creates a new burst system.
func NewBurstSystem(w *ecs.World) *BurstSystem {
	return &BurstSystem{
		filter: ecs.NewFilter1[components.Burst](w),
	}
}

// Update advances every timer by dt seconds and returns how many fired.
// A timer fires at Delay, then every Interval after that.
func (s *BurstSystem) Update(dt float64) int {
	fired := 0
	query := s.filter.Query()
	for query.Next() {
		b := query.Get()
		b.Elapsed += dt
		b.Fired = false
		if b.Elapsed >= nextBurst(b) {
			b.Fired = true
			b.Count++
			fired++
		}
	}
	return fired
}

func nextBurst(b *components.Burst) float64 {
	if b.Interval <= 0 {
		return b.Delay
	}
	return b.Delay + float64(b.Count)*b.Interval
}

// UntilNext returns the seconds remaining before b next fires.
func UntilNext(b components.Burst) float64 {
	return max(0, nextBurst(&b)-b.Elapsed)
}
