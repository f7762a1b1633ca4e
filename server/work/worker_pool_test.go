package work

import (
	"testing"

	"github.com/avelychko/rolodex/server/models"
	"github.com/stretchr/testify/assert"
)

func TestEnqueue(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := newWorkerPool(datastore, MAX_CONCURRENCY)

	err := workerPool.enqueue(JobParams{
		Name:    "database_backup",
		Handler: "database_backup",
		Args: map[string]interface{}{
			"bucket": "rolodex",
		},
	})
	assert.Nil(t, err)

	job, err := datastore.LastJob(models.ENQUEUED_JOB, false)
	assert.Nil(t, err)
	assert.Equal(t, "database_backup", job.Name)
	assert.Contains(t, job.Args, "rolodex", "Should contain the correct arg values")

	// enqueuing again while the first is still queued is a duplicate
	err = workerPool.enqueue(JobParams{
		Name:    "database_backup",
		Handler: "database_backup",
		Args:    map[string]interface{}{},
	})
	assert.ErrorIs(t, err, models.ErrDuplicateJob)
}

func TestEnqueueRequiresNameAndHandler(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := newWorkerPool(datastore, MAX_CONCURRENCY)

	err := workerPool.enqueue(JobParams{Name: " ", Handler: "database_backup"})
	assert.NotNil(t, err)

	err = workerPool.enqueue(JobParams{Name: "database_backup", Handler: ""})
	assert.NotNil(t, err)
}

func TestEnqueueIn(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := newWorkerPool(datastore, MAX_CONCURRENCY)

	err := workerPool.enqueueIn(0, JobParams{
		Name:    "birthday_reminders",
		Handler: "birthday_reminders",
		Args: map[string]interface{}{
			"first_name": "mike",
			"last_name":  "ross",
		},
	})
	assert.Nil(t, err)

	// Make sure the correct job is created & scheduled to be run
	job, err := datastore.FirstScheduledJobToBeQueued()
	assert.Nil(t, err)
	assert.Equal(t, "birthday_reminders", job.Name, "The job name should match the expected job name")
	assert.Contains(t, job.Args, "mike", "Should contain the correct arg values")
	assert.Equal(t, models.SCHEDULED_JOB, job.JobStatus.Name, "The job should be in scheduled queue")
}

func TestRegisterHandler(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := newWorkerPool(datastore, MAX_CONCURRENCY)

	noop := func(map[string]interface{}) error { return nil }

	assert.Nil(t, workerPool.registerHandler("birthday_reminders", noop))
	assert.ErrorIs(t, workerPool.registerHandler("birthday_reminders", noop), ErrDuplicateHandler)
}
