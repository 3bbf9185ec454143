package client

import (
	"context"
	"sync"
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

// JobKind names a backend write.
type JobKind int

const (
	JobSavePixels JobKind = iota
	JobPutBarony
	JobDeleteBarony
	JobCreateBarony
)

func (k JobKind) String() string {
	switch k {
	case JobSavePixels:
		return "save pixels"
	case JobPutBarony:
		return "update barony"
	case JobDeleteBarony:
		return "delete barony"
	case JobCreateBarony:
		return "create barony"
	}
	return "unknown"
}

// Job is one queued backend write.
type Job struct {
	Kind   JobKind
	Pixels typedef.PixelData
	ID     int64
	Fields typedef.BaronyFields
	Barony typedef.Barony
	// Seq is opaque to the dispatcher and comes back in the job's Result.
	Seq uint64
}

// SavePixelsJob snapshots data so later edits cannot leak into the request.
func SavePixelsJob(data typedef.PixelData) Job {
	return Job{Kind: JobSavePixels, Pixels: data.Clone()}
}

func PutBaronyJob(id int64, fields typedef.BaronyFields) Job {
	return Job{Kind: JobPutBarony, ID: id, Fields: fields}
}

func DeleteBaronyJob(id int64) Job {
	return Job{Kind: JobDeleteBarony, ID: id}
}

func CreateBaronyJob(b typedef.Barony) Job {
	return Job{Kind: JobCreateBarony, ID: b.ID, Barony: b}
}

// Result reports the outcome of a job.
type Result struct {
	Job      Job
	Err      error
	Revision int64
	Changes  int64
	// CreatedID is set by JobCreateBarony.
	CreatedID int64
}

// Backend is the part of Client the dispatcher drives.
type Backend interface {
	PutPixels(ctx context.Context, data typedef.PixelData) (SaveResult, error)
	PutBarony(ctx context.Context, id int64, fields typedef.BaronyFields) (int64, error)
	DeleteBarony(ctx context.Context, id int64) (int64, error)
	CreateBarony(ctx context.Context, b typedef.Barony) (int64, error)
}

// Dispatcher runs backend writes one at a time in submission order.
// A pending or failed pixel save is dropped when a newer one is submitted.
type Dispatcher struct {
	backend Backend
	timeout time.Duration

	mu      sync.Mutex
	queue   []Job
	failed  []Job
	running bool

	wake    chan struct{}
	results chan Result
	log     *logrus.Entry
}

// NewDispatcher creates a dispatcher. timeout bounds each job including retries.
func NewDispatcher(backend Backend, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		backend: backend,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		results: make(chan Result, 64),
		log:     logrus.WithField("component", "dispatcher"),
	}
}

// Results delivers one Result per finished job.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Submit queues a job.
func (d *Dispatcher) Submit(job Job) {
	d.mu.Lock()
	if job.Kind == JobSavePixels {
		kept := d.queue[:0]
		for _, queued := range d.queue {
			if queued.Kind != JobSavePixels {
				kept = append(kept, queued)
			}
		}
		if dropped := len(d.queue) - len(kept); dropped > 0 {
			d.log.WithField("dropped", dropped).Debug("superseded pending pixel save")
		}
		d.queue = kept
		d.dropFailedSaves()
	}
	d.queue = append(d.queue, job)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Retry resubmits every failed job and returns how many were queued.
func (d *Dispatcher) Retry() int {
	d.mu.Lock()
	failed := d.failed
	d.failed = nil
	d.mu.Unlock()

	for _, job := range failed {
		d.Submit(job)
	}
	return len(failed)
}

// Failed returns the number of jobs waiting for Retry.
func (d *Dispatcher) Failed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failed)
}

// Pending returns the number of queued or running jobs.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.queue)
	if d.running {
		n++
	}
	return n
}

// Run processes jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		job, ok := d.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}

		res := d.execute(ctx, job)

		d.mu.Lock()
		d.running = false
		if job.Kind == JobSavePixels {
			d.dropFailedSaves()
		}
		if res.Err != nil && !(job.Kind == JobSavePixels && d.saveQueued()) {
			d.failed = append(d.failed, job)
		}
		d.mu.Unlock()

		if res.Err != nil {
			d.log.WithError(res.Err).WithField("job", job.Kind.String()).Error("backend write failed")
		}
		select {
		case d.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) next() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Job{}, false
	}
	job := d.queue[0]
	d.queue = d.queue[1:]
	d.running = true
	return job, true
}

func (d *Dispatcher) saveQueued() bool {
	for _, job := range d.queue {
		if job.Kind == JobSavePixels {
			return true
		}
	}
	return false
}

// dropFailedSaves forgets failed pixel saves once newer data exists. Caller holds mu.
func (d *Dispatcher) dropFailedSaves() {
	kept := d.failed[:0]
	for _, job := range d.failed {
		if job.Kind != JobSavePixels {
			kept = append(kept, job)
		}
	}
	d.failed = kept
}

func (d *Dispatcher) execute(ctx context.Context, job Job) Result {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res := Result{Job: job}
	switch job.Kind {
	case JobSavePixels:
		saved, err := d.backend.PutPixels(ctx, job.Pixels)
		res.Err, res.Revision = err, saved.Revision
	case JobPutBarony:
		res.Changes, res.Err = d.backend.PutBarony(ctx, job.ID, job.Fields)
	case JobDeleteBarony:
		res.Changes, res.Err = d.backend.DeleteBarony(ctx, job.ID)
	case JobCreateBarony:
		res.CreatedID, res.Err = d.backend.CreateBarony(ctx, job.Barony)
	}
	return res
}
