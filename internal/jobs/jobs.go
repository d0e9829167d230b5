// Package jobs tracks long-running pipeline work for the HTTP layer. Jobs
// are in-process and expire after a TTL; durable results live in artifacts.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"

	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one tracked run.
type Job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store holds jobs with a TTL. Mutations go through the store so concurrent
// HTTP reads always see a consistent snapshot.
type Store struct {
	mu sync.Mutex
	c  *cache.Cache
}

// NewStore creates a job store whose entries expire ttl after their last
// update.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{c: cache.New(ttl, 10*time.Minute)}
}

// Create registers a new pending job and returns its snapshot.
func (s *Store) Create(kind string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.c.SetDefault(job.ID, job)
	return job
}

// Get returns a job snapshot.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(id)
	if !ok {
		return Job{}, eris.Wrap(resilience.NewNotFound("job", id), "jobs: get")
	}
	return v.(Job), nil
}

// List returns all live jobs, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.c.Items()
	out := make([]Job, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Start marks a job running.
func (s *Store) Start(id string) {
	s.update(id, func(j *Job) { j.Status = StatusRunning })
}

// SetProgress records row progress on a running job.
func (s *Store) SetProgress(id string, done, total int) {
	s.update(id, func(j *Job) {
		j.Done = done
		j.Total = total
	})
}

// Complete marks a job finished and attaches its result.
func (s *Store) Complete(id string, result any) {
	s.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = result
	})
}

// Fail marks a job failed with the error message.
func (s *Store) Fail(id string, err error) {
	s.update(id, func(j *Job) {
		j.Status = StatusFailed
		if err != nil {
			j.Error = err.Error()
		}
	})
}

func (s *Store) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(id)
	if !ok {
		return
	}
	job := v.(Job)
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.c.SetDefault(id, job)
}
