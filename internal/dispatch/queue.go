package dispatch

import "sync"

// queue is an unbounded multi-producer single-consumer FIFO. push never
// blocks; pop blocks until a job arrives or the queue is closed. At most
// one StatusPing is pending at a time.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []Job
	pings  int
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(job Job) {
	q.mu.Lock()
	if q.closed || (job.Kind == StatusPing && q.pings > 0) {
		q.mu.Unlock()
		return
	}
	if job.Kind == StatusPing {
		q.pings++
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	q.cond.Signal()
}

// pushFront puts a job back at the head, ahead of anything enqueued since
// it was popped
func (q *queue) pushFront(job Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.jobs = append([]Job{job}, q.jobs...)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return Job{}, false
	}

	job := q.jobs[0]
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	if job.Kind == StatusPing {
		q.pings--
	}
	return job, true
}

// dropPings discards pending status pings, returning how many went
func (q *queue) dropPings() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pings == 0 {
		return 0
	}
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.Kind != StatusPing {
			kept = append(kept, job)
		}
	}
	for i := len(kept); i < len(q.jobs); i++ {
		q.jobs[i] = Job{}
	}
	q.jobs = kept
	dropped := q.pings
	q.pings = 0
	return dropped
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// close wakes the consumer and discards pending jobs
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.jobs = nil
	q.pings = 0
	q.mu.Unlock()
	q.cond.Broadcast()
}
