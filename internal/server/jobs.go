package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/runlock"
)

const jobHistory = 32

// errJobRunning is returned when a reindex is already in progress.
var errJobRunning = errors.New("a reindex job is already running")

// JobState is the lifecycle state of a reindex job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// ReindexRequest is the body of POST /api/v1/reindex.
type ReindexRequest struct {
	Index    string   `json:"index,omitempty"`
	Types    []string `json:"types,omitempty"`
	Clear    bool     `json:"clear,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// Job is a snapshot of a reindex job.
type Job struct {
	ID         string          `json:"id"`
	State      JobState        `json:"state"`
	Request    ReindexRequest  `json:"request"`
	Total      int             `json:"total"`
	Processed  int             `json:"processed"`
	Report     *indexer.Report `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// jobManager runs at most one reindex at a time and remembers recent jobs.
type jobManager struct {
	syncer *indexer.Syncer
	lock   *runlock.Lock
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	history *lru.Cache[string, *Job]
	running *Job
}

func newJobManager(syncer *indexer.Syncer, lock *runlock.Lock, logger *zap.Logger) *jobManager {
	history, _ := lru.New[string, *Job](jobHistory)
	ctx, cancel := context.WithCancel(context.Background())
	return &jobManager{
		syncer:  syncer,
		lock:    lock,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		history: history,
	}
}

// start launches a reindex in the background and returns its initial snapshot.
func (m *jobManager) start(req ReindexRequest) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != nil {
		return Job{}, errJobRunning
	}
	if m.lock != nil {
		if err := m.lock.TryLock(); err != nil {
			if errors.Is(err, runlock.ErrHeld) {
				return Job{}, errJobRunning
			}
			return Job{}, err
		}
	}
	job := &Job{ID: uuid.NewString(), State: JobRunning, Request: req, StartedAt: time.Now().UTC()}
	m.running = job
	m.history.Add(job.ID, job)

	m.wg.Add(1)
	go m.run(job)
	return *job, nil
}

func (m *jobManager) run(job *Job) {
	defer m.wg.Done()
	report, err := m.syncer.Reindex(m.ctx, indexer.ReindexOptions{
		Index:    job.Request.Index,
		Types:    job.Request.Types,
		Clear:    job.Request.Clear,
		PageSize: job.Request.PageSize,
		Observer: &jobObserver{m: m, job: job},
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Report = report
	switch {
	case err == nil:
		job.State = JobSucceeded
	case errors.Is(err, context.Canceled):
		job.State = JobCancelled
		job.Error = err.Error()
	default:
		job.State = JobFailed
		job.Error = err.Error()
	}
	m.running = nil
	if m.lock != nil {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release reindex lock", zap.Error(err))
		}
	}
	m.logger.Info("reindex job finished", zap.String("job_id", job.ID), zap.String("state", string(job.State)))
}

func (m *jobManager) get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.history.Get(id)
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (m *jobManager) current() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running == nil {
		return nil
	}
	snap := *m.running
	return &snap
}

// shutdown cancels a running job and waits for it to stop.
func (m *jobManager) shutdown() {
	m.cancel()
	m.wg.Wait()
}

type jobObserver struct {
	m   *jobManager
	job *Job
}

func (o *jobObserver) Start(total int) {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()
	o.job.Total = total
}

func (o *jobObserver) Advance(processed, total int) {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()
	o.job.Processed = processed
	o.job.Total = total
}
