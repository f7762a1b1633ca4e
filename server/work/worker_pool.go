package work

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avelychko/rolodex/server/models"
	"github.com/pkg/errors"
)

type workerPool struct {
	datastore   *models.Datastore
	handlers    map[string]Handler
	workers     []*worker
	requeuers   []*requeuer
	concurrency int
	started     bool
}

func newWorkerPool(datastore *models.Datastore, concurrency int) *workerPool {
	wp := workerPool{
		datastore:   datastore,
		handlers:    make(map[string]Handler),
		concurrency: concurrency,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(datastore, []int64{0, 10, 100, 120}))
	}

	wp.requeuers = append(wp.requeuers,
		newRequeuer(datastore, models.IN_PROGRESS_JOB),
		newRequeuer(datastore, models.SCHEDULED_JOB),
	)

	return &wp
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *workerPool) registerHandler(name string, handler Handler) error {
	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler

	for _, worker := range wp.workers {
		err := worker.registerHandler(name, handler)
		if err != nil && !errors.Is(err, ErrDuplicateHandler) {
			logg.Panic(err)
		}
	}

	return nil
}

// enqueue adds a job to the queue(to be executed) by creating a db record
// based on the 'JobParams' provided
func (wp *workerPool) enqueue(job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}

	return wp.datastore.CreateUniqueJobByName(job.Name, job.Handler, string(argsAsJson))
}

// enqueueIn schedules a job to join the queue 'performInSeconds' from now.
func (wp *workerPool) enqueueIn(performInSeconds int64, job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}

	performAt := time.Now().Add(time.Duration(performInSeconds) * time.Second)
	return wp.datastore.CreateScheduledJob(job.Name, job.Handler, string(argsAsJson), performAt)
}

func (wp *workerPool) start() {
	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}

	for _, requeuer := range wp.requeuers {
		requeuer.start()
	}
}

func (wp *workerPool) stop() {
	if !wp.started {
		return
	}

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}

	for _, r := range wp.requeuers {
		wg.Add(1)
		go func(r *requeuer) {
			r.stop()
			wg.Done()
		}(r)
	}

	wg.Wait()
	wp.started = false
}
