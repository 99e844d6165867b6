package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a deck build.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusSplitting JobStatus = "splitting"
	StatusWriting   JobStatus = "writing"
	StatusCompleted JobStatus = "completed"
	StatusUnchanged JobStatus = "unchanged"
	StatusFailed    JobStatus = "failed"
)

// Trigger names what asked for a build.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerWatch   Trigger = "watch"
	TriggerAPI     Trigger = "api"
)

// Job tracks the state of a single deck build.
type Job struct {
	mu sync.Mutex

	ID      string  `json:"job_id"`
	Trigger Trigger `json:"trigger"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	errors []string
	done   chan struct{}
}

// Progress tracks build progress across locales.
type Progress struct {
	Locales       int      `json:"locales"`
	LocalesBuilt  int      `json:"locales_built"`
	SlidesWritten int      `json:"slides_written"`
	Errors        []string `json:"errors"`
}

// NewJob creates a queued job.
func NewJob(trigger Trigger) *Job {
	now := time.Now()
	return &Job{
		ID:        ContentHashHex([]byte(fmt.Sprintf("%s-%d", trigger, now.UnixNano())))[:20],
		Trigger:   trigger,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Terminal statuses release
// anyone blocked in Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Terminal() && j.done != nil {
		select {
		case <-j.done:
		default:
			close(j.done)
		}
	}
}

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusUnchanged || s == StatusFailed
}

// Wait blocks until the job reaches a terminal status or done is closed.
func (j *Job) Wait(done <-chan struct{}) bool {
	if j.done == nil {
		return false
	}
	select {
	case <-j.done:
		return true
	case <-done:
		return false
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetLocales records how many locales the build covers.
func (j *Job) SetLocales(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Locales = n
	j.UpdatedAt = time.Now()
}

// LocaleBuilt records a finished locale and the slides written for it.
func (j *Job) LocaleBuilt(slides int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.LocalesBuilt++
	j.Progress.SlidesWritten += slides
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the build inputs.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Trigger     Trigger   `json:"trigger"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:      j.ID,
		Trigger: j.Trigger,
		Status:  j.Status,
		Phase:   j.Phase,
		Progress: Progress{
			Locales:       j.Progress.Locales,
			LocalesBuilt:  j.Progress.LocalesBuilt,
			SlidesWritten: j.Progress.SlidesWritten,
			Errors:        errs,
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
