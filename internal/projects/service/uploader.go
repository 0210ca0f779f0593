package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
)

// uploadJob is either a project snapshot to push or a remote operation
// (rename, delete, duplicate) that has to wait its turn behind the writes
// already queued for id.
type uploadJob struct {
	id      string
	project *domain.Project
	create  bool
	op      func(context.Context) error
	done    []func(error)
}

// uploader is the only path through which the remote store is written. It
// runs one job at a time, in FIFO order. Queued snapshots for the same id
// coalesce to the newest one, so a project never has two writes in flight.
// Jobs run on a background context and are never cut short.
type uploader struct {
	remote  repository.RemoteStore
	logger  *zap.Logger
	metrics *metrics.SyncMetrics

	mu       sync.Mutex
	queue    []*uploadJob
	pending  map[string]*uploadJob // queued snapshot per id
	bases    map[string]time.Time
	inflight bool
	idle     chan struct{}
	lastErr  error
	lastOK   time.Time
	stopped  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newUploader(remote repository.RemoteStore, logger *zap.Logger, m *metrics.SyncMetrics) *uploader {
	idle := make(chan struct{})
	close(idle)
	u := &uploader{
		remote:  remote,
		logger:  logger,
		metrics: m,
		pending: make(map[string]*uploadJob),
		bases:   make(map[string]time.Time),
		idle:    idle,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go u.run()
	return u
}

// Enqueue schedules p for upload. create asks for an insert first, which is
// what a project born on this device needs. done, if set, receives the
// outcome of the upload that carries this snapshot.
func (u *uploader) Enqueue(p *domain.Project, create bool, done func(error)) {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		if done != nil {
			done(errUploaderClosed)
		}
		return
	}
	job, queued := u.pending[p.ID]
	if !queued {
		job = &uploadJob{id: p.ID}
		u.pending[p.ID] = job
		u.queue = append(u.queue, job)
	}
	job.project = p.Clone()
	job.create = job.create || create
	if done != nil {
		job.done = append(job.done, done)
	}
	u.markBusyLocked()
	depth := len(u.queue)
	u.mu.Unlock()

	u.metrics.SetQueueDepth(depth)
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

var errUploaderClosed = errors.New("uploader closed")

// Do runs fn on the worker after every job already queued for id, and
// waits for its result. Snapshots enqueued for id afterwards run after fn.
// If ctx ends first Do returns ctx.Err() and fn still runs in its turn.
func (u *uploader) Do(ctx context.Context, id string, fn func(context.Context) error) error {
	res := make(chan error, 1)

	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return errUploaderClosed
	}
	delete(u.pending, id)
	u.queue = append(u.queue, &uploadJob{
		id:   id,
		op:   fn,
		done: []func(error){func(err error) { res <- err }},
	})
	u.markBusyLocked()
	depth := len(u.queue)
	u.mu.Unlock()

	u.metrics.SetQueueDepth(depth)
	select {
	case u.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retitle renames the snapshot queued for id, if there is one, so it cannot
// put an old name back.
func (u *uploader) Retitle(id, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if job, ok := u.pending[id]; ok {
		job.project.Name = domain.NormalizeName(name)
	}
}

// Forget drops any queued snapshot and the known remote version for id.
func (u *uploader) Forget(id string) {
	u.mu.Lock()
	var dropped []func(error)
	if job, ok := u.pending[id]; ok {
		dropped = job.done
		delete(u.pending, id)
		for i, queued := range u.queue {
			if queued == job {
				u.queue = append(u.queue[:i], u.queue[i+1:]...)
				break
			}
		}
	}
	delete(u.bases, id)
	u.markIdleIfDrainedLocked()
	u.mu.Unlock()

	for _, fn := range dropped {
		fn(domain.ErrNotFound)
	}
}

// SetBase records the remote updated_at this device last saw for id.
func (u *uploader) SetBase(id string, updatedAt time.Time) {
	u.mu.Lock()
	u.bases[id] = updatedAt
	u.mu.Unlock()
}

// ResetBases forgets every known remote version. Used when the signed-in
// user changes.
func (u *uploader) ResetBases() {
	u.mu.Lock()
	u.bases = make(map[string]time.Time)
	u.mu.Unlock()
}

// Busy reports whether anything is queued or uploading.
func (u *uploader) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inflight || len(u.queue) > 0
}

// Pending is the number of jobs waiting for the worker.
func (u *uploader) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.queue)
}

// LastResult returns the time of the last successful upload and the error
// of the most recent one, nil if it succeeded.
func (u *uploader) LastResult() (lastOK time.Time, lastErr error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastOK, u.lastErr
}

// Flush waits until the queue is empty and nothing is in flight.
func (u *uploader) Flush(ctx context.Context) error {
	for {
		u.mu.Lock()
		idle := u.idle
		u.mu.Unlock()

		select {
		case <-idle:
			if !u.Busy() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting work, drains the queue and waits for the worker.
// If ctx ends first the worker keeps going in the background.
func (u *uploader) Close(ctx context.Context) error {
	u.mu.Lock()
	if !u.stopped {
		u.stopped = true
		close(u.stop)
	}
	u.mu.Unlock()

	select {
	case <-u.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *uploader) run() {
	defer close(u.done)
	for {
		if job := u.next(); job != nil {
			u.finish(job, u.exec(job))
			continue
		}
		select {
		case <-u.wake:
		case <-u.stop:
			for job := u.next(); job != nil; job = u.next() {
				u.finish(job, u.exec(job))
			}
			return
		}
	}
}

func (u *uploader) next() *uploadJob {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.queue) == 0 {
		return nil
	}
	job := u.queue[0]
	u.queue = u.queue[1:]
	if u.pending[job.id] == job {
		delete(u.pending, job.id)
	}
	u.inflight = true
	u.metrics.SetQueueDepth(len(u.queue))
	return job
}

// finish runs the job's callbacks before the uploader can report idle, so
// Flush returning means every callback has run. Only snapshot uploads count
// towards LastResult; operations report to their caller.
func (u *uploader) finish(job *uploadJob, err error) {
	for _, fn := range job.done {
		fn(err)
	}

	u.mu.Lock()
	u.inflight = false
	if job.op == nil {
		if err != nil {
			u.lastErr = err
		} else {
			u.lastErr = nil
			u.lastOK = domain.Now()
		}
	}
	u.markIdleIfDrainedLocked()
	u.mu.Unlock()
}

func (u *uploader) exec(job *uploadJob) error {
	if job.op != nil {
		return job.op(context.Background())
	}
	return u.upload(job)
}

func (u *uploader) upload(job *uploadJob) error {
	ctx := context.Background()
	p := job.project
	log := u.logger.With(zap.String("project_id", p.ID))

	u.mu.Lock()
	base := u.bases[p.ID]
	u.mu.Unlock()

	var (
		stored time.Time
		err    error
	)
	if job.create && base.IsZero() {
		stored, err = u.insert(ctx, p)
		if errors.Is(err, domain.ErrConflict) {
			stored, err = u.update(ctx, p, base)
		}
	} else {
		stored, err = u.update(ctx, p, base)
		if errors.Is(err, domain.ErrNotFound) {
			stored, err = u.insert(ctx, p)
		}
	}

	if err != nil {
		log.Warn("remote upload failed, project kept locally", zap.Error(err))
		return err
	}

	u.SetBase(p.ID, stored)
	log.Debug("project uploaded", zap.Time("updated_at", stored))
	return nil
}

func (u *uploader) update(ctx context.Context, p *domain.Project, base time.Time) (time.Time, error) {
	stored, err := u.remote.SaveProject(ctx, p, base)
	u.metrics.RemoteOp("save", err)
	return stored, err
}

func (u *uploader) insert(ctx context.Context, p *domain.Project) (time.Time, error) {
	created, err := u.remote.CreateProjectWithID(ctx, p)
	u.metrics.RemoteOp("create", err)
	if err != nil {
		return time.Time{}, err
	}
	return created.UpdatedAt, nil
}

func (u *uploader) markBusyLocked() {
	select {
	case <-u.idle:
		u.idle = make(chan struct{})
	default:
	}
}

func (u *uploader) markIdleIfDrainedLocked() {
	if u.inflight || len(u.queue) > 0 {
		return
	}
	select {
	case <-u.idle:
	default:
		close(u.idle)
	}
}
