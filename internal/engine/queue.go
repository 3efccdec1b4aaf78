package engine

import "github.com/hardbanrecords/backoffice/internal/model"

// jobQueue keeps pending jobs sorted by ascending priority with FIFO
// order among equal priorities. It is not safe for concurrent use; the
// engine serializes access through its mutex.
type jobQueue struct {
	items []*model.Job
}

func newJobQueue() *jobQueue {
	return &jobQueue{}
}

// insert places the job before the first element with a strictly
// greater priority, so equal priorities keep arrival order.
func (q *jobQueue) insert(job *model.Job) {
	at := len(q.items)
	for i, item := range q.items {
		if item.Priority > job.Priority {
			at = i
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[at+1:], q.items[at:])
	q.items[at] = job
}

// removeNext pops the head of the queue, or nil when empty.
func (q *jobQueue) removeNext() *model.Job {
	if len(q.items) == 0 {
		return nil
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return job
}

// positionOf returns the 1-based rank of a queued job, or 0 when the
// job is not in the queue.
func (q *jobQueue) positionOf(id string) int {
	for i, item := range q.items {
		if item.ID == id {
			return i + 1
		}
	}
	return 0
}

// remove deletes a job from anywhere in the queue. Returns the removed
// job, or nil when not present.
func (q *jobQueue) remove(id string) *model.Job {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

func (q *jobQueue) len() int {
	return len(q.items)
}
