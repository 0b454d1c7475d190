package volume

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum voxel count to use the worker pool.
// Below this, a dispatch runs inline since goroutine handoff dominates.
const parallelThreshold = 4096

// chunksPerWorker splits each dispatch finer than the worker count so
// uneven rows (obstacles, early ray exits) still balance.
const chunksPerWorker = 4

// workChunk is a range of rows (y,z pairs) of one dispatch domain.
type workChunk struct {
	fn         VoxelFunc
	nx, ny     int
	start, end int
}

// workerPool runs dispatch chunks on persistent goroutines.
type workerPool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	pending  sync.WaitGroup // tracks submitted, unfinished chunks
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers*chunksPerWorker)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop waits for outstanding chunks, then signals all workers to exit.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	p.pending.Wait()
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.run()
			p.pending.Done()
		}
	}
}

// submit enqueues fn over domain and returns without waiting.
func (p *workerPool) submit(fn VoxelFunc, domain Dims) {
	rows := domain.Y * domain.Z

	if domain.Count() < parallelThreshold || p.numWorkers == 1 {
		workChunk{fn: fn, nx: domain.X, ny: domain.Y, start: 0, end: rows}.run()
		return
	}

	if !p.running {
		p.start()
	}

	numChunks := min(p.numWorkers*chunksPerWorker, rows)
	chunkSize := (rows + numChunks - 1) / numChunks

	for start := 0; start < rows; start += chunkSize {
		end := min(start+chunkSize, rows)
		p.pending.Add(1)
		p.workChan <- workChunk{fn: fn, nx: domain.X, ny: domain.Y, start: start, end: end}
	}
}

// wait blocks until every submitted chunk has finished.
func (p *workerPool) wait() {
	p.pending.Wait()
}

// run executes the kernel for every voxel in the chunk's rows.
func (c workChunk) run() {
	for row := c.start; row < c.end; row++ {
		y := row % c.ny
		z := row / c.ny
		for x := 0; x < c.nx; x++ {
			c.fn(x, y, z)
		}
	}
}
