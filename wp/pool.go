package wp

import (
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

// Pool runs tasks on a fixed set of workers. Tasks submitted with the same
// key always land on the same worker, so they run in submission order.
type Pool struct {
	maxWorkers int
	taskQueues []chan func()
	wg         sync.WaitGroup

	// done is closed by Stop to release submitters blocked on a full queue
	done       chan struct{}
	submitters sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewPool(maxWorkers int, queueBuffer int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueBuffer < 1 {
		queueBuffer = 1
	}

	p := &Pool{
		maxWorkers: maxWorkers,
		taskQueues: make([]chan func(), maxWorkers),
		done:       make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		p.taskQueues[i] = make(chan func(), queueBuffer)
		p.wg.Add(1)
		go p.startWorker(p.taskQueues[i])
	}

	return p
}

func (p *Pool) startWorker(queue chan func()) {
	defer p.wg.Done()
	for task := range queue {
		task()
	}
}

// Submit queues task on the worker owning key. It blocks while that worker's
// queue is full and reports false when the pool is stopped, including when
// Stop is called while it waits. A task that submits to its own key with a
// full queue blocks its worker until Stop.
func (p *Pool) Submit(key string, task func()) bool {
	if task == nil {
		return false
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	select {
	case p.taskQueues[p.shard(key)] <- task:
		return true
	case <-p.done:
		return false
	}
}

func (p *Pool) shard(key string) uint64 {
	return fnv1a.HashString64(key) % uint64(p.maxWorkers)
}

// Stop rejects new tasks, drains the queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.done)
	p.mu.Unlock()

	p.submitters.Wait()
	for _, q := range p.taskQueues {
		close(q)
	}
	p.wg.Wait()
}
