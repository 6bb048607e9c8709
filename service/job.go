package service

import (
	"context"
	"sync"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/engine"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/recovery"
)

// JobStatus is the lifecycle state of a diarization job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCanceled
}

// JobOptions override the service settings for one job.
type JobOptions struct {
	Policy diarization.PrivacyMode    `json:"policy,omitempty" validate:"omitempty,privacy_mode"`
	Mode   diarization.ProcessingMode `json:"mode,omitempty" validate:"omitempty,processing_mode"`
}

// JobHandle tracks one background diarization run.
type JobHandle struct {
	ID        string
	MeetingID string
	CreatedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	status     JobStatus
	result     *engine.Result
	err        error
	finishedAt time.Time
}

func newJobHandle(id, meetingID string, now time.Time, cancel context.CancelFunc) *JobHandle {
	return &JobHandle{
		ID:        id,
		MeetingID: meetingID,
		CreatedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    JobQueued,
	}
}

// Status returns the current state.
func (j *JobHandle) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Done is closed when the job finishes.
func (j *JobHandle) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx is done.
func (j *JobHandle) Wait(ctx context.Context) (*engine.Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Cancel stops the job. Canceling a finished job does nothing.
func (j *JobHandle) Cancel() { j.cancel() }

func (j *JobHandle) setRunning() {
	j.mu.Lock()
	j.status = JobRunning
	j.mu.Unlock()
}

func (j *JobHandle) finish(res *engine.Result, err error, now time.Time) JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result, j.err, j.finishedAt = res, err, now
	switch {
	case err == nil:
		j.status = JobSucceeded
	case errors.Classify(err) == errors.KindCanceled:
		j.status = JobCanceled
	default:
		j.status = JobFailed
	}
	close(j.done)
	j.cancel()
	return j.status
}

func (j *JobHandle) expired(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.Terminal() && j.finishedAt.Before(cutoff)
}

// JobInfo is a point-in-time view of a job.
type JobInfo struct {
	ID         string                     `json:"id"`
	MeetingID  string                     `json:"meeting_id"`
	Status     JobStatus                  `json:"status"`
	Mode       diarization.ProcessingMode `json:"mode,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Fallbacks  []recovery.Fallback        `json:"fallbacks,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// Info returns a snapshot of the job.
func (j *JobHandle) Info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := JobInfo{ID: j.ID, MeetingID: j.MeetingID, Status: j.status, CreatedAt: j.CreatedAt}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	if j.result != nil {
		info.Mode = j.result.Mode
		info.Fallbacks = j.result.Fallbacks
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		info.FinishedAt = &t
	}
	return info
}
