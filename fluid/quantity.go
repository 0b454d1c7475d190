package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// Quantity is a double-buffered field with a property bag and an optional
// injection strategy. After any write followed by Swap the current data is
// in Ping.
type Quantity struct {
	name      string
	ping      *volume.Field
	pong      *volume.Field
	props     *param.Bag
	injection Injection
}

// NewQuantity allocates both buffers at the given resolution.
func NewQuantity(name string, dims volume.Dims, format volume.Format, inj Injection) *Quantity {
	return &Quantity{
		name:      name,
		ping:      volume.New(name+".ping", dims, format),
		pong:      volume.New(name+".pong", dims, format),
		props:     param.NewBag(),
		injection: inj,
	}
}

// Name returns the quantity name.
func (q *Quantity) Name() string { return q.name }

// Ping returns the current buffer.
func (q *Quantity) Ping() *volume.Field { return q.ping }

// Pong returns the scratch buffer.
func (q *Quantity) Pong() *volume.Field { return q.pong }

// Swap exchanges ping and pong.
func (q *Quantity) Swap() {
	q.ping, q.pong = q.pong, q.ping
}

// Properties returns the property bag.
func (q *Quantity) Properties() *param.Bag { return q.props }

// SetProperty sets a named property. The first set fixes its kind.
func (q *Quantity) SetProperty(name string, v param.Value) error {
	if err := q.props.Set(name, v); err != nil {
		return fmt.Errorf("quantity %s: %w", q.name, err)
	}
	return nil
}

// Property returns a named property.
func (q *Quantity) Property(name string) (param.Value, error) {
	v, err := q.props.Get(name)
	if err != nil {
		return param.Value{}, fmt.Errorf("quantity %s: %w", q.name, err)
	}
	return v, nil
}

// Float returns a float property.
func (q *Quantity) Float(name string) (float64, error) {
	f, err := q.props.Float(name)
	if err != nil {
		return 0, fmt.Errorf("quantity %s: %w", q.name, err)
	}
	return f, nil
}

// Vec3 returns a vec3 property.
func (q *Quantity) Vec3(name string) (r3.Vec, error) {
	v, err := q.props.Vec3(name)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("quantity %s: %w", q.name, err)
	}
	return v, nil
}

// Injection returns the injection strategy, or nil.
func (q *Quantity) Injection() Injection { return q.injection }

// Inject deposits into the quantity at a normalized position.
func (q *Quantity) Inject(ctx *volume.Context, position r3.Vec, dt float64) error {
	if q.injection == nil {
		return fmt.Errorf("quantity %s: no injection strategy", q.name)
	}
	return q.injection.Inject(ctx, q, position, dt)
}

// Clear zeroes both buffers.
func (q *Quantity) Clear(ctx *volume.Context) error {
	if err := q.ping.Clear(ctx); err != nil {
		return err
	}
	return q.pong.Clear(ctx)
}

// Blur blurs the current buffer into its blurred copy.
func (q *Quantity) Blur(ctx *volume.Context, sigma float64, size int) error {
	return q.ping.Blur(ctx, sigma, size)
}

// Reset releases both buffers.
func (q *Quantity) Reset() {
	q.ping.Reset()
	q.pong.Reset()
}
