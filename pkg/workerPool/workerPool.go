package workerPool

import (
	"runtime"
	"sync"
)

// WorkerPool runs tasks on a fixed number of goroutines. Tasks are grouped in
// rooms so that callers can collect the results of their own batch.
type WorkerPool struct {
	config    Config
	taskQueue chan Task
	closeOnce sync.Once
}

type Config struct {
	WorkerCount  int
	GlobalBuffer int
}

type Room struct {
	resultChan chan any
	wg         sync.WaitGroup
	wp         *WorkerPool
}

type Task struct {
	run  func() any
	room *Room
}

func NewWorkerPool(config Config) *WorkerPool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU() * 3
	}

	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 10000
	}

	wp := &WorkerPool{
		config:    config,
		taskQueue: make(chan Task, config.GlobalBuffer),
	}

	for i := 0; i < config.WorkerCount; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	for t := range wp.taskQueue {
		t.room.resultChan <- t.run()
		t.room.wg.Done()
	}
}

// Close stops the workers once the queued tasks are done. No task may be
// added after Close.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.taskQueue)
	})
}

// CreateRoom creates a room whose results are buffered up to size.
func (wp *WorkerPool) CreateRoom(size int) *Room {
	if size < 1 {
		size = 1
	}
	return &Room{
		resultChan: make(chan any, size),
		wp:         wp,
	}
}

// NewTaskWaitForFreeSlot queues job, blocking while the global queue is full.
func (ro *Room) NewTaskWaitForFreeSlot(job func() any) {
	ro.wg.Add(1)
	ro.wp.taskQueue <- Task{run: job, room: ro}
}

// Collect waits for every task of the room and returns their results in
// completion order. A room can be collected once.
func (ro *Room) Collect() []any {
	go ro.waitAndClose()

	results := make([]any, 0, cap(ro.resultChan))
	for result := range ro.resultChan {
		results = append(results, result)
	}
	return results
}

func (ro *Room) waitAndClose() {
	ro.wg.Wait()
	close(ro.resultChan)
}
