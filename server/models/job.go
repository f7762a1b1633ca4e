package models

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name" gorm:"not null"`
	Handler     string     `json:"handler" gorm:"not null"`
	Args        string     `json:"args"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	JobStatusID uint       `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status,omitempty"`
}

// CreateUniqueJobByName enqueues a job unless one with the same name is
// already waiting or running, in which case ErrDuplicateJob is returned.
func (ds *Datastore) CreateUniqueJobByName(name, handler, args string) error {
	queued, err := ds.queuedStatusIDs()
	if err != nil {
		return err
	}

	result := ds.db.Where("name = ? AND job_status_id IN ?", name, queued).First(&Job{})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return ErrDuplicateJob
	}

	enqueuedStatus, err := ds.FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return err
	}

	return ds.db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  time.Now(),
		JobStatusID: enqueuedStatus.ID,
	}).Error
}

// CreateScheduledJob creates a job that becomes eligible for the queue at
// 'performAt'; the scheduled-jobs requeuer moves it to 'enqueued' once due.
func (ds *Datastore) CreateScheduledJob(name, handler, args string, performAt time.Time) error {
	scheduledStatus, err := ds.FindJobStatus(SCHEDULED_JOB)
	if err != nil {
		return err
	}

	return ds.db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  performAt,
		JobStatusID: scheduledStatus.ID,
	}).Error
}

// queuedStatusIDs lists the status ids of jobs still waiting or running.
func (ds *Datastore) queuedStatusIDs() ([]uint, error) {
	statuses := []JobStatus{}
	err := ds.db.Where("name IN ?", []string{ENQUEUED_JOB, IN_PROGRESS_JOB}).Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	statusIDs := make([]uint, 0, len(statuses))
	for _, status := range statuses {
		statusIDs = append(statusIDs, status.ID)
	}

	return statusIDs, nil
}

func (ds *Datastore) LastJob(status string, claimed bool) (*Job, error) {
	job := Job{}

	err := ds.db.Joins(
		"INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ? AND claimed = ?",
		status, claimed).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// ClaimJob marks the job as in-progress iff no other worker got to it
// first; the bool reports whether the claim won.
func (ds *Datastore) ClaimJob(jobID uint) (bool, error) {
	inProgressStatus, err := ds.FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	result := ds.db.Model(&Job{}).Where("id = ? AND claimed = ?", jobID, false).
		Updates(map[string]interface{}{
			"claimed":       true,
			"job_status_id": inProgressStatus.ID,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (ds *Datastore) UpdateJob(jobID uint, data map[string]interface{}) error {
	return ds.db.Model(&Job{}).Where("id = ?", jobID).Updates(data).Error
}

// FirstScheduledJobToBeQueued returns the oldest scheduled job whose
// enqueue time has elapsed.
func (ds *Datastore) FirstScheduledJobToBeQueued() (*Job, error) {
	scheduledStatus, err := ds.FindJobStatus(SCHEDULED_JOB)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = ds.db.Preload("JobStatus").
		Where("job_status_id = ? AND enqueued_at <= ?", scheduledStatus.ID, time.Now()).
		First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// LastJobLastUpdated returns the last job of the given status which was
// last updated at least 'minutesAgo' minutes ago.
//
// WARNING: THE DATE ARITHMETIC IS UNIQUE TO SQLITE, REMEMBER TO UPDATE IT
// IF/WHEN OTHER SQL DATABASES ARE SUPPORTED
func (ds *Datastore) LastJobLastUpdated(minutesAgo uint, status string) (*Job, error) {
	jobStatus, err := ds.FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = ds.db.Where(
		fmt.Sprintf("job_status_id = ? AND datetime(updated_at, '+%v minute') <= datetime('now')", minutesAgo),
		jobStatus.ID,
	).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}
