package store

import (
	"sync"
	"time"
)

// JobStatus values mirror the provider's build status strings.
type JobStatus string

const (
	JobStatusCreated  JobStatus = "created"
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusSuccess  JobStatus = "success"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
	JobStatusSkipped  JobStatus = "skipped"
	JobStatusManual   JobStatus = "manual"
)

// Terminal reports whether no further transitions can occur from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed, JobStatusCanceled, JobStatusSkipped:
		return true
	}
	return false
}

// JobRecord is an immutable snapshot of one job within a pipeline. A later
// record with the same ID supersedes the old one whole; records are never
// merged field-by-field.
type JobRecord struct {
	ID            int64
	Name          string
	Stage         string
	Status        JobStatus
	Duration      *float64
	FailureReason string
	AllowFailure  bool
}

// PipelineMetadata carries descriptive fields picked up opportunistically
// from whichever event happens to include them.
type PipelineMetadata struct {
	ProjectName   string
	ProjectWebURL string
	Ref           string
	CommitSHA     string
	CommitMessage string
	UserName      string
	Username      string
}

// Merge returns m overlaid with every non-empty field of other.
// Empty values never overwrite earlier ones.
func (m PipelineMetadata) Merge(other PipelineMetadata) PipelineMetadata {
	out := m
	if other.ProjectName != "" {
		out.ProjectName = other.ProjectName
	}
	if other.ProjectWebURL != "" {
		out.ProjectWebURL = other.ProjectWebURL
	}
	if other.Ref != "" {
		out.Ref = other.Ref
	}
	if other.CommitSHA != "" {
		out.CommitSHA = other.CommitSHA
	}
	if other.CommitMessage != "" {
		out.CommitMessage = other.CommitMessage
	}
	if other.UserName != "" {
		out.UserName = other.UserName
	}
	if other.Username != "" {
		out.Username = other.Username
	}
	return out
}

// TrackedPipeline is the per-pipeline tracking entry. It is treated as a
// value: mutations happen inside PipelineStore.Update, which replaces the
// stored entry wholesale, so no reader ever observes a partial update.
type TrackedPipeline struct {
	LiveMessageID        string
	OwnedByPipelineEvent bool
	Meta                 PipelineMetadata
	Jobs                 map[int64]JobRecord
	CreatedAt            time.Time
}

// PutJob returns a copy of p with job upserted by id.
func (p TrackedPipeline) PutJob(job JobRecord) TrackedPipeline {
	jobs := make(map[int64]JobRecord, len(p.Jobs)+1)
	for k, v := range p.Jobs {
		jobs[k] = v
	}
	jobs[job.ID] = job
	p.Jobs = jobs
	return p
}

type jobMessage struct {
	messageID string
	createdAt time.Time
}

// PipelineStore tracks live-message state per pipeline, plus a legacy
// per-job message map used when a provider only ever sends job events for a
// run. All state is in memory and intentionally lossy across restarts.
//
// Every read-modify-write against an entry goes through Update so it stays
// a single critical section against the cleanup sweep, which runs from its
// own goroutine.
type PipelineStore struct {
	mu        sync.Mutex
	pipelines map[int64]TrackedPipeline
	jobs      map[int64]jobMessage

	now func() time.Time
}

func NewPipelineStore() *PipelineStore {
	return &PipelineStore{
		pipelines: make(map[int64]TrackedPipeline),
		jobs:      make(map[int64]jobMessage),
		now:       time.Now,
	}
}

// Get returns the tracked entry for id, if any.
func (s *PipelineStore) Get(id int64) (TrackedPipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	return p, ok
}

// Update applies fn to the entry for id, creating an empty entry first if
// none exists (including when a concurrent sweep just removed it), and
// stores the result. The returned value is the stored entry.
func (s *PipelineStore) Update(id int64, fn func(TrackedPipeline) TrackedPipeline) TrackedPipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	if !ok {
		p = TrackedPipeline{CreatedAt: s.now()}
	}
	p = fn(p)
	s.pipelines[id] = p
	return p
}

// Remove clears the entry for id. Used when a pipeline reaches a terminal
// status.
func (s *PipelineStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pipelines, id)
}

// Len reports how many pipelines are currently tracked.
func (s *PipelineStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pipelines)
}

// JobMessage returns the legacy per-job tracked message id, if any.
func (s *PipelineStore) JobMessage(jobID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.jobs[jobID]
	if !ok {
		return "", false
	}
	return m.messageID, true
}

// SetJobMessage tracks a message id for a single job.
func (s *PipelineStore) SetJobMessage(jobID int64, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = jobMessage{messageID: messageID, createdAt: s.now()}
}

// ClearJobMessage drops the tracked message id for a job.
func (s *PipelineStore) ClearJobMessage(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// SweepOlderThan removes every tracking entry, pipeline or job, whose
// CreatedAt is older than maxAge, regardless of status. It is the backstop
// against pipelines that stop emitting events mid-run. Returns the number
// of entries removed.
func (s *PipelineStore) SweepOlderThan(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, p := range s.pipelines {
		if p.CreatedAt.Before(cutoff) {
			delete(s.pipelines, id)
			removed++
		}
	}
	for id, m := range s.jobs {
		if m.createdAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
