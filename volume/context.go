package volume

// DefaultSigmaMin is the smallest blur sigma accepted before clamping.
const DefaultSigmaMin = 1e-4

// Context is scoped to one grid resolution. It carries the dispatcher and
// owns the scratch volumes shared by every blur at that resolution.
// A resize creates a new Context.
type Context struct {
	Dispatcher *Dispatcher
	SigmaMin   float64

	dims       Dims
	ping, pong *Field
}

// NewContext creates a context for grids of the given dims.
func NewContext(d *Dispatcher, dims Dims) *Context {
	return &Context{
		Dispatcher: d,
		SigmaMin:   DefaultSigmaMin,
		dims:       dims,
	}
}

// Dims returns the grid resolution the context serves.
func (c *Context) Dims() Dims { return c.dims }

// Groups returns the work group counts covering the grid.
func (c *Context) Groups() (gx, gy, gz int) {
	return c.Dispatcher.Groups(c.dims)
}

// Bind binds a kernel on the context's dispatcher.
func (c *Context) Bind(kernel string) (*Pipeline, error) {
	return c.Dispatcher.Bind(kernel)
}

// Barrier waits for all outstanding dispatches.
func (c *Context) Barrier() {
	c.Dispatcher.Barrier()
}

// scratch returns the blur scratch pair, allocating it on first use.
func (c *Context) scratch() (ping, pong *Field) {
	if c.ping == nil {
		c.ping = New("blur.ping", c.dims, RGBA)
		c.pong = New("blur.pong", c.dims, RGBA)
	}
	return c.ping, c.pong
}

// Release frees the scratch volumes.
func (c *Context) Release() {
	if c.ping != nil {
		c.ping.Reset()
		c.pong.Reset()
		c.ping, c.pong = nil, nil
	}
}
