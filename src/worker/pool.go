package worker

import (
	"log"
	"sync"

	"snapsqueeze/src/compress"
)

// DefaultSize is the number of compression workers.
const DefaultSize = 2

// Compressor is the part of compress.Compressor the pool needs.
type Compressor interface {
	CompressResult(data []byte, req compress.Request) compress.Result
}

// ResultCallback is invoked on completion from a worker goroutine.
// The event loop should pass a closure that posts back into the loop.
type ResultCallback func(res compress.Result)

// Pool is a fixed-size compression worker pool with a 1-slot input queue
// (strict back-pressure).
type Pool struct {
	compressor Compressor
	jobs       chan job
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

type job struct {
	data []byte
	req  compress.Request
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to DefaultSize when size<=0.
func New(size int, c Compressor) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{compressor: c, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker %d: compressing %d bytes (%s)", id, len(j.data), j.req)
				res := p.compressor.CompressResult(j.data, j.req)
				log.Printf("Worker %d: done, %d -> %d bytes, strategy=%s", id, res.OriginalSize, res.CompressedSize, res.Strategy)
				j.cb(res)
			}
		}(i)
	}
}

// Submit enqueues a compression job if the single-slot queue is free.
// Returns false if dropped.
func (p *Pool) Submit(data []byte, req compress.Request, cb ResultCallback) bool {
	select {
	case p.jobs <- job{data: data, req: req, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Safe to call twice.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
