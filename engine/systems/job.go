package systems

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
)

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
)

// Job is one unit of work. OnFailure or OnComplete runs on the worker
// after Run returns.
type Job struct {
	Run        func() error
	OnFailure  func(err error)
	OnComplete func()
}

// JobSystem runs jobs on a fixed set of worker goroutines.
type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	once       sync.Once
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogDebug("job failed: %v", err)
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnComplete != nil {
					job.OnComplete()
				}
			}
		}()
	}
}

// Shutdown drains the queue and waits for the workers to exit.
func (js *JobSystem) Shutdown() {
	js.once.Do(func() {
		close(js.jobQueue)
	})
	js.wg.Wait()
}

// Submit queues a job, blocking while the queue is full.
func (js *JobSystem) Submit(job Job) {
	js.jobQueue <- job
}

// RunAll runs fns on the workers and waits for every one of them. The
// errors are combined in the order of fns. It must not be called from a
// job.
func (js *JobSystem) RunAll(fns ...func() error) error {
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		js.Submit(Job{
			Run:        fn,
			OnFailure:  func(err error) { errs[i] = err; wg.Done() },
			OnComplete: wg.Done,
		})
	}
	wg.Wait()

	var combined error
	for _, err := range errs {
		combined = errors.CombineErrors(combined, err)
	}
	return combined
}
