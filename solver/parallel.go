package solver

import (
	"sync"
	"sync/atomic"
)

// parallelThreshold is the minimum cell count to fan a pass out to the
// pool. Below this the goroutine hand-off costs more than the pass.
const parallelThreshold = 4096

// chunkSize is the number of cells a worker claims at a time.
const chunkSize = 2048

// passFunc updates the cells [lo, hi).
type passFunc func(lo, hi int)

// job is one pass shared by all workers. Workers claim chunks from next
// until the range is exhausted.
type job struct {
	n    int
	next atomic.Int64
	fn   passFunc
}

func (j *job) drain() {
	for {
		lo := int(j.next.Add(chunkSize)) - chunkSize
		if lo >= j.n {
			return
		}
		j.fn(lo, min(lo+chunkSize, j.n))
	}
}

// pool is a set of persistent workers that run passes.
type pool struct {
	numWorkers int

	workChan chan *job
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(numWorkers int) *pool {
	return &pool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan *job, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case j := <-p.workChan:
			j.drain()
			p.doneChan <- struct{}{}
		}
	}
}

// run executes fn over [0, n) and returns once every cell is done. Passes
// are independent per cell, so the result does not depend on how chunks are
// scheduled.
func (p *pool) run(n int, fn passFunc) {
	if p == nil || p.numWorkers < 2 || n < parallelThreshold {
		fn(0, n)
		return
	}
	if !p.running {
		p.start()
	}

	j := &job{n: n, fn: fn}
	for i := 0; i < p.numWorkers; i++ {
		p.workChan <- j
	}
	for i := 0; i < p.numWorkers; i++ {
		<-p.doneChan
	}
}
