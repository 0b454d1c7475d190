package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/smoke/components"
	"github.com/pthm-cable/smoke/fluid"
)

// DuplicateOffset is the x offset applied when duplicating the last emitter.
const DuplicateOffset = 0.25

// ErrNoEmitters is returned when duplicating with no emitters to copy.
var ErrNoEmitters = errors.New("systems: no emitters")

// EmitterSystem owns the emitter entities and syncs them into the solver's
// ordered injection list.
type EmitterSystem struct {
	world      *ecs.World
	mapper     *ecs.Map2[components.Emitter, components.Order]
	filter     *ecs.Filter2[components.Emitter, components.Order]
	orbitMap   *ecs.Map[components.Orbit]
	burstMap   *ecs.Map[components.Burst]
	flickerMap *ecs.Map[components.Flicker]
}

// NewEmitterSystem creates an emitter system over w.
func NewEmitterSystem(w *ecs.World) *EmitterSystem {
	return &EmitterSystem{
		world:      w,
		mapper:     ecs.NewMap2[components.Emitter, components.Order](w),
		filter:     ecs.NewFilter2[components.Emitter, components.Order](w),
		orbitMap:   ecs.NewMap[components.Orbit](w),
		burstMap:   ecs.NewMap[components.Burst](w),
		flickerMap: ecs.NewMap[components.Flicker](w),
	}
}

type orderedEntity struct {
	entity  ecs.Entity
	index   int
	emitter *components.Emitter
}

// ordered returns the emitters sorted by Order.Index.
func (s *EmitterSystem) ordered() []orderedEntity {
	var out []orderedEntity
	query := s.filter.Query()
	for query.Next() {
		em, ord := query.Get()
		out = append(out, orderedEntity{entity: query.Entity(), index: ord.Index, emitter: em})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// Count returns the number of emitters.
func (s *EmitterSystem) Count() int {
	query := s.filter.Query()
	n := query.Count()
	query.Close()
	return n
}

// Spawn appends an emitter for site at the end of the order.
func (s *EmitterSystem) Spawn(site fluid.InjectionProperties) ecs.Entity {
	em := components.Emitter{Site: site, Gain: 1}
	ord := components.Order{Index: s.Count()}
	return s.mapper.NewEntity(&em, &ord)
}

// Entities returns the emitter entities in order.
func (s *EmitterSystem) Entities() []ecs.Entity {
	list := s.ordered()
	out := make([]ecs.Entity, len(list))
	for i, o := range list {
		out[i] = o.entity
	}
	return out
}

// Emitter returns the emitter component of e.
func (s *EmitterSystem) Emitter(e ecs.Entity) *components.Emitter {
	em, _ := s.mapper.Get(e)
	return em
}

// Sites returns the configured sites in order, without gain.
func (s *EmitterSystem) Sites() []fluid.InjectionProperties {
	list := s.ordered()
	out := make([]fluid.InjectionProperties, len(list))
	for i, o := range list {
		out[i] = o.emitter.Site
	}
	return out
}

// Duplicate copies the last emitter with its x position shifted by
// DuplicateOffset. Motion components are not copied.
func (s *EmitterSystem) Duplicate() (ecs.Entity, error) {
	list := s.ordered()
	if len(list) == 0 {
		return ecs.Entity{}, ErrNoEmitters
	}
	site := list[len(list)-1].emitter.Site
	site.Position.X += DuplicateOffset
	if site.Position.X > 1 {
		slog.Warn("duplicated emitter outside the domain", "x", site.Position.X)
	}
	return s.Spawn(site), nil
}

// Remove deletes the emitter at order index i and closes the gap.
func (s *EmitterSystem) Remove(i int) error {
	list := s.ordered()
	if i < 0 || i >= len(list) {
		return fmt.Errorf("remove emitter %d of %d: %w", i, len(list), fluid.ErrInjectionIndex)
	}
	s.world.RemoveEntity(list[i].entity)
	for j := i + 1; j < len(list); j++ {
		_, ord := s.mapper.Get(list[j].entity)
		ord.Index = j - 1
	}
	return nil
}

// Clear removes every emitter.
func (s *EmitterSystem) Clear() {
	for _, o := range s.ordered() {
		s.world.RemoveEntity(o.entity)
	}
}

// Collect returns the solver sites in order with gain applied. With
// burstOnly set, only emitters whose Burst fired this tick are included.
func (s *EmitterSystem) Collect(burstOnly bool) []fluid.InjectionProperties {
	var out []fluid.InjectionProperties
	for _, o := range s.ordered() {
		em := o.emitter
		if em.Disabled {
			continue
		}
		if burstOnly {
			if !s.burstMap.Has(o.entity) || !s.burstMap.Get(o.entity).Fired {
				continue
			}
		}
		site := em.Site
		site.DensityIntensity *= em.Gain
		site.TemperatureIntensity *= em.Gain
		site.VelocityIntensity *= em.Gain
		out = append(out, site)
	}
	return out
}

// Sync writes the collected sites into f and returns how many were set.
func (s *EmitterSystem) Sync(f *fluid.Fluid, burstOnly bool) int {
	sites := s.Collect(burstOnly)
	f.SetInjections(sites)
	return len(sites)
}

// SetOrbit attaches or replaces the orbit of e.
func (s *EmitterSystem) SetOrbit(e ecs.Entity, o components.Orbit) {
	if s.orbitMap.Has(e) {
		*s.orbitMap.Get(e) = o
		return
	}
	s.orbitMap.Add(e, &o)
}

// SetBurst attaches or replaces the burst timer of e.
func (s *EmitterSystem) SetBurst(e ecs.Entity, b components.Burst) {
	if s.burstMap.Has(e) {
		*s.burstMap.Get(e) = b
		return
	}
	s.burstMap.Add(e, &b)
}

// SetFlicker attaches or replaces the flicker of e.
func (s *EmitterSystem) SetFlicker(e ecs.Entity, fl components.Flicker) {
	if s.flickerMap.Has(e) {
		*s.flickerMap.Get(e) = fl
		return
	}
	s.flickerMap.Add(e, &fl)
}

// ClearMotion removes orbit and burst components from every emitter and
// restores the configured positions saved in base.
func (s *EmitterSystem) ClearMotion(base []fluid.InjectionProperties) {
	for i, o := range s.ordered() {
		if s.orbitMap.Has(o.entity) {
			s.orbitMap.Remove(o.entity)
			// removal moves the entity, so fetch the emitter again
			if i < len(base) {
				s.Emitter(o.entity).Site.Position = base[i].Position
			}
		}
		if s.burstMap.Has(o.entity) {
			s.burstMap.Remove(o.entity)
		}
	}
}

// ClearFlicker removes flicker from every emitter and resets gain.
func (s *EmitterSystem) ClearFlicker() {
	for _, o := range s.ordered() {
		if s.flickerMap.Has(o.entity) {
			s.flickerMap.Remove(o.entity)
		}
		s.Emitter(o.entity).Gain = 1
	}
}

// HasOrbit reports whether e orbits.
func (s *EmitterSystem) HasOrbit(e ecs.Entity) bool { return s.orbitMap.Has(e) }

// HasBurst reports whether e has a burst timer.
func (s *EmitterSystem) HasBurst(e ecs.Entity) bool { return s.burstMap.Has(e) }

// HasFlicker reports whether e flickers.
func (s *EmitterSystem) HasFlicker(e ecs.Entity) bool { return s.flickerMap.Has(e) }
