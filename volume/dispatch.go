package volume

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pthm-cable/smoke/param"
)

var (
	// ErrUnknownKernel is returned by Bind for an unregistered kernel name.
	ErrUnknownKernel = errors.New("volume: unknown kernel")
	// ErrHazard is returned when a dispatch binds one field for both reading
	// and writing, or touches a field that an earlier dispatch is still using
	// with no barrier in between.
	ErrHazard = errors.New("volume: access hazard")
	// ErrUnbound is returned when dispatching through an unbound pipeline.
	ErrUnbound = errors.New("volume: pipeline not bound")
)

// DefaultWorkGroupSize is the edge length of a cubic work group.
const DefaultWorkGroupSize = 8

// VoxelFunc is the per-invocation body of a kernel.
type VoxelFunc func(x, y, z int)

// Kernel resolves its parameters and bindings once per dispatch and returns
// the per-voxel body. Lookup failures are recorded on Args and abort the
// dispatch.
type Kernel func(a *Args) VoxelFunc

// Stats counts dispatcher activity.
type Stats struct {
	Dispatches int64
	Barriers   int64
	Voxels     int64
}

// Dispatcher owns the kernel registry and the worker pool. It is driven by
// a single host goroutine; kernels execute on the pool.
type Dispatcher struct {
	kernels   map[string]Kernel
	pool      *workerPool
	workGroup int

	pendingReads  map[*Field]string
	pendingWrites map[*Field]string

	stats Stats
}

// NewDispatcher creates a dispatcher with the given worker count
// (0 = GOMAXPROCS) and registers the built-in clear and blur kernels.
func NewDispatcher(workers int) *Dispatcher {
	d := &Dispatcher{
		kernels:       make(map[string]Kernel),
		pool:          newWorkerPool(workers),
		workGroup:     DefaultWorkGroupSize,
		pendingReads:  make(map[*Field]string),
		pendingWrites: make(map[*Field]string),
	}
	d.Register(KernelClear, clearKernel)
	d.Register(KernelBlur, blurKernel)
	return d
}

// Register adds or replaces a named kernel.
func (d *Dispatcher) Register(name string, k Kernel) {
	d.kernels[name] = k
}

// Has reports whether a kernel is registered under name.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.kernels[name]
	return ok
}

// SetWorkGroupSize sets the work group edge length used by Groups.
func (d *Dispatcher) SetWorkGroupSize(n int) {
	if n < 1 {
		n = DefaultWorkGroupSize
	}
	d.workGroup = n
}

// WorkGroupSize returns the work group edge length.
func (d *Dispatcher) WorkGroupSize() int {
	return d.workGroup
}

// Groups returns the number of work groups needed to cover dims.
func (d *Dispatcher) Groups(dims Dims) (gx, gy, gz int) {
	wg := d.workGroup
	return (dims.X + wg - 1) / wg, (dims.Y + wg - 1) / wg, (dims.Z + wg - 1) / wg
}

// Bind returns a pipeline for the named kernel with an empty parameter set.
func (d *Dispatcher) Bind(name string) (*Pipeline, error) {
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return &Pipeline{
		d:      d,
		name:   name,
		kernel: k,
		params: make(param.Set),
		bound:  true,
	}, nil
}

// Barrier blocks until every dispatched kernel has finished and makes
// their writes visible to later dispatches.
func (d *Dispatcher) Barrier() {
	d.pool.wait()
	clear(d.pendingReads)
	clear(d.pendingWrites)
	d.stats.Barriers++
}

// Stats returns activity counters since creation.
func (d *Dispatcher) Stats() Stats {
	return d.stats
}

// Close waits for outstanding work and stops the worker pool.
func (d *Dispatcher) Close() {
	d.Barrier()
	d.pool.stop()
}

// checkHazards rejects fields bound for both reading and writing, reads of
// fields with pending writes, and writes of fields with pending reads or
// writes.
func (d *Dispatcher) checkHazards(kernel string, b *Bindings) error {
	reads := b.reads()
	for _, w := range b.writes() {
		if slices.Contains(reads, w) {
			return fmt.Errorf("%w: %s reads and writes %s", ErrHazard, kernel, w.name)
		}
	}
	for _, f := range reads {
		if by, ok := d.pendingWrites[f]; ok {
			return fmt.Errorf("%w: %s reads %s written by %s without barrier", ErrHazard, kernel, f.name, by)
		}
	}
	for _, f := range b.writes() {
		if by, ok := d.pendingWrites[f]; ok {
			return fmt.Errorf("%w: %s writes %s written by %s without barrier", ErrHazard, kernel, f.name, by)
		}
		if by, ok := d.pendingReads[f]; ok {
			return fmt.Errorf("%w: %s writes %s read by %s without barrier", ErrHazard, kernel, f.name, by)
		}
	}
	return nil
}

// Pipeline is a bound kernel plus its parameter set.
type Pipeline struct {
	d      *Dispatcher
	name   string
	kernel Kernel
	params param.Set
	bound  bool
}

// Name returns the kernel name.
func (p *Pipeline) Name() string { return p.name }

// SetParameter sets a named uniform for subsequent dispatches.
func (p *Pipeline) SetParameter(name string, v param.Value) {
	p.params[name] = v
}

// Dispatch runs the kernel over gx*gy*gz work groups, clipped to the field
// bound at image unit 0. It returns once the work is queued; call Barrier
// on the dispatcher before reading the results.
func (p *Pipeline) Dispatch(b Bindings, gx, gy, gz int) error {
	if !p.bound {
		return fmt.Errorf("%w: %s", ErrUnbound, p.name)
	}
	target := b.Image(0)
	if target == nil {
		return fmt.Errorf("volume: kernel %s: no image bound at unit 0", p.name)
	}
	if err := p.d.checkHazards(p.name, &b); err != nil {
		return err
	}

	args := &Args{kernel: p.name, params: p.params, bind: b}
	fn := p.kernel(args)
	if args.err != nil {
		return fmt.Errorf("volume: kernel %s: %w", p.name, args.err)
	}
	if fn == nil {
		return fmt.Errorf("volume: kernel %s: no voxel function", p.name)
	}

	wg := p.d.workGroup
	td := target.Dims()
	domain := Dims{
		X: min(gx*wg, td.X),
		Y: min(gy*wg, td.Y),
		Z: min(gz*wg, td.Z),
	}
	if !domain.Valid() {
		return nil
	}

	for _, f := range b.reads() {
		p.d.pendingReads[f] = p.name
	}
	for _, f := range b.writes() {
		p.d.pendingWrites[f] = p.name
	}
	p.d.stats.Dispatches++
	p.d.stats.Voxels += int64(domain.Count())

	p.d.pool.submit(fn, domain)
	return nil
}

// DispatchAll dispatches enough groups to cover the image at unit 0.
func (p *Pipeline) DispatchAll(b Bindings) error {
	target := b.Image(0)
	if target == nil {
		return fmt.Errorf("volume: kernel %s: no image bound at unit 0", p.name)
	}
	gx, gy, gz := p.d.Groups(target.Dims())
	return p.Dispatch(b, gx, gy, gz)
}

// Unbind releases the pipeline; later dispatches fail.
func (p *Pipeline) Unbind() {
	p.bound = false
	clear(p.params)
}
