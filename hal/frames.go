package hal

import "sync"

// FrameQueue is the host FrameSource. Hosts call Dispatch once per display refresh.
type FrameQueue struct {
	mu     sync.Mutex
	next   uint64
	frames []queuedFrame
	tasks  []func()

	// frames taken by the running Dispatch; CancelFrame clears their fn
	running []queuedFrame
}

type queuedFrame struct {
	id uint64
	fn func()
}

func NewFrameQueue() *FrameQueue { return &FrameQueue{} }

func (q *FrameQueue) RequestFrame(fn func()) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.frames = append(q.frames, queuedFrame{id: q.next, fn: fn})
	return q.next
}

func (q *FrameQueue) CancelFrame(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, f := range q.frames {
		if f.id == id {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			return
		}
	}
	for i := range q.running {
		if q.running[i].id == id {
			q.running[i].fn = nil
			return
		}
	}
}

func (q *FrameQueue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, fn)
}

// Pending returns the number of queued frame callbacks and tasks.
func (q *FrameQueue) Pending() (frames, tasks int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames), len(q.tasks)
}

// Dispatch runs posted tasks, then the frame callbacks that were requested before this
// call. Callbacks requested while dispatching wait for the next refresh. It returns the
// number of frame callbacks run.
func (q *FrameQueue) Dispatch() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}

	q.mu.Lock()
	q.running = q.frames
	q.frames = nil
	q.mu.Unlock()

	n := 0
	for i := 0; ; i++ {
		q.mu.Lock()
		if i >= len(q.running) {
			q.running = nil
			q.mu.Unlock()
			return n
		}
		fn := q.running[i].fn
		q.mu.Unlock()

		if fn != nil {
			fn()
			n++
		}
	}
}
