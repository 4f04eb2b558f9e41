package cron

import (
	"context"
	"fmt"
	"strings"
)

// Result summarizes one job run. Skipped jobs decided they were not due.
type Result struct {
	Processed int
	Skipped   bool
}

// Job is a sweep the worker runs each cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Registry keeps jobs by name in registration order.
type Registry struct {
	order []string
	jobs  map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds job. Names must be unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := job.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("job name required")
	}
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.jobs[name] = job
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.jobs[name])
	}
	return jobs
}

// Select returns the named jobs, or every job when names is empty.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job, ok := r.jobs[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown job %q (known: %s)", name, strings.Join(r.order, ", "))
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
