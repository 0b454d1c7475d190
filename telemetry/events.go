// Package telemetry provides simulation statistics, profiling, CSV output
// and a live stats stream.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventBurst EventType = iota
	EventObstacleChange
	EventReset
	EventResize
)

var eventNames = [...]string{"burst", "obstacle_change", "reset", "resize"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single host event.
type Event struct {
	Type EventType
	Tick int32

	// Value carries the new obstacle index or grid size where relevant.
	Value int
}

// NewBurstEvent creates an explosive-mode burst event.
func NewBurstEvent(tick int32) Event {
	return Event{Type: EventBurst, Tick: tick}
}

// NewObstacleChangeEvent creates an obstacle change event.
func NewObstacleChangeEvent(tick int32, index int) Event {
	return Event{Type: EventObstacleChange, Tick: tick, Value: index}
}

// NewResetEvent creates a reset event.
func NewResetEvent(tick int32) Event {
	return Event{Type: EventReset, Tick: tick}
}

// NewResizeEvent creates a resize event carrying the voxel count.
func NewResizeEvent(tick int32, voxels int) Event {
	return Event{Type: EventResize, Tick: tick, Value: voxels}
}
