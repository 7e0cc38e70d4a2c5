package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/riskscore"
)

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Processed int `json:"processed,omitempty"`
	Total     int `json:"total,omitempty"`

	// For the final result
	Summary *riskscore.Summary `json:"summary,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

const jobTypeBulk = "bulk-analyze"

type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Result *riskscore.BulkResult `json:"result,omitempty"`

	// history holds every event emitted so far; subs are the live listeners.
	// ended is set once the final event has been emitted.
	history []JobEvent
	subs    map[chan JobEvent]struct{}
	ended   bool
}

// jobEventBuffer is the room each subscriber has for live events beyond the
// replayed history.
const jobEventBuffer = 16

// snapshot copies j without its event state. Callers hold jobsMu.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.history = nil
	cp.subs = nil
	return &cp
}

// emitJobEvent records ev and fans it out to the job's subscribers. A slow
// subscriber loses live progress events; the final event always replaces the
// oldest queued one so every subscriber sees how the job ended.
func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return
	}
	job.history = append(job.history, ev)

	final := ev.Type == JobEventResult || ev.Status.Finished()
	for ch := range job.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if !final {
			continue
		}
		select {
		case <-ch:
		default:
		}
		// jobsMu serializes senders, so there is room now.
		ch <- ev
	}
	if final {
		job.ended = true
		for ch := range job.subs {
			close(ch)
		}
		job.subs = nil
	}
}

// SubscribeJob returns a snapshot of the job and a channel that replays every
// event emitted so far, then carries live events until the job finishes and
// the channel is closed. Every subscriber gets its own channel. stop releases
// the subscription early. ok is false for unknown jobs.
func (o *Orchestrator) SubscribeJob(jobID string) (job *Job, events <-chan JobEvent, stop func(), ok bool) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil, nil, func() {}, false
	}

	ch := make(chan JobEvent, len(j.history)+jobEventBuffer)
	for _, ev := range j.history {
		ch <- ev
	}
	if j.ended {
		close(ch)
		return j.snapshot(), ch, func() {}, true
	}

	if j.subs == nil {
		j.subs = make(map[chan JobEvent]struct{})
	}
	j.subs[ch] = struct{}{}
	stop = func() {
		o.jobsMu.Lock()
		defer o.jobsMu.Unlock()
		if _, live := j.subs[ch]; live {
			delete(j.subs, ch)
			close(ch)
		}
	}
	return j.snapshot(), ch, stop, true
}

func (o *Orchestrator) updateJob(jobID string, fn func(j *Job)) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		fn(j)
	}
}

// pruneJobsLocked drops the oldest finished jobs beyond the configured history.
func (o *Orchestrator) pruneJobsLocked() {
	limit := o.cfg.JobHistory
	if limit <= 0 || len(o.jobs) <= limit {
		return
	}
	var finished []*Job
	for _, j := range o.jobs {
		if j.Status.Finished() {
			finished = append(finished, j)
		}
	}
	slices.SortFunc(finished, func(a, b *Job) int { return a.StartedAt.Compare(b.StartedAt) })
	for _, j := range finished {
		if len(o.jobs) <= limit {
			return
		}
		delete(o.jobs, j.ID)
	}
}

func (o *Orchestrator) deleteCancel(jobID string) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	delete(o.jobCancels, jobID)
}

func (o *Orchestrator) getCancel(jobID string) context.CancelFunc {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobCancels[jobID]
}

// StartBulkJob validates the batch and scores it in the background. Status,
// progress and result events are delivered through SubscribeJob. Invalid
// input is reported synchronously and no job is created.
func (o *Orchestrator) StartBulkJob(ctx context.Context, ds []riskscore.Descriptor) (*Job, error) {
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.Name, err)
		}
	}

	jobID := uuid.New().String()
	job := &Job{
		ID:        jobID,
		Type:      jobTypeBulk,
		Status:    JobPending,
		Total:     len(ds),
		StartedAt: time.Now().UTC(),
	}
	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	o.jobs[jobID] = job
	o.pruneJobsLocked()
	o.jobCancels[jobID] = cancel
	o.jobsWG.Add(1)
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer o.jobsWG.Done()
		defer func() {
			cancel()
			o.deleteCancel(jobID)
		}()

		o.updateJob(jobID, func(j *Job) { j.Status = JobRunning })
		o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

		res, err := o.bulkAnalyze(jobCtx, ds, func(done, total int) {
			o.updateJob(jobID, func(j *Job) { j.Processed = done })
			o.emitJobEvent(jobID, JobEvent{
				JobID:     jobID,
				Type:      JobEventProgress,
				Processed: done,
				Total:     total,
			})
		})

		if jobCtx.Err() != nil {
			o.finishJob(jobID, JobCanceled, jobCtx.Err().Error(), nil)
			return
		}
		if err != nil {
			o.finishJob(jobID, JobFailed, err.Error(), nil)
			return
		}
		o.finishJob(jobID, JobDone, "", res)
	}()

	return o.GetJob(jobID), nil
}

func (o *Orchestrator) finishJob(jobID string, status JobStatus, errMsg string, res *riskscore.BulkResult) {
	o.updateJob(jobID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.Result = res
		j.EndedAt = time.Now().UTC()
	})
	o.metrics.ObserveJob(string(status))

	ev := JobEvent{JobID: jobID, Type: JobEventStatus, Status: status, Error: errMsg}
	if status == JobDone {
		ev.Type = JobEventResult
		ev.Summary = &res.Summary
	}
	o.emitJobEvent(jobID, ev)

	o.logger.Info("bulk job finished",
		logging.Field{Key: "job_id", Value: jobID},
		logging.Field{Key: "status", Value: string(status)})
}

// CancelJob cancels a running job. It reports false when the job is unknown
// or already finished.
func (o *Orchestrator) CancelJob(jobID string) bool {
	cancel := o.getCancel(jobID)
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// GetJob returns a snapshot of the job, or nil.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	return j.snapshot()
}

// ListJobs returns snapshots of every known job, oldest first.
func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	out := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j.snapshot())
	}
	o.jobsMu.Unlock()

	slices.SortFunc(out, func(a, b *Job) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}
