package store

import (
	"context"
	"sync"
	"time"

	"github.com/streamvault/hlsdl/internal/common"
)

// Memory is an in-process Store backed by a guarded map, grounded in the
// teacher's engine.downloads in-memory registry.
type Memory struct {
	mu       sync.RWMutex
	jobs     map[string]*common.Job
	settings common.Settings
}

// NewMemory builds an empty Memory store with default settings.
func NewMemory() *Memory {
	return &Memory{
		jobs:     make(map[string]*common.Job),
		settings: common.DefaultSettings(),
	}
}

func (m *Memory) SaveJob(_ context.Context, job *common.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*common.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]*common.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*common.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *Memory) UpdateJobProgress(_ context.Context, id string, downloadedSegments int, downloadedBytes, speed, eta int64, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.DownloadedSegments = downloadedSegments
	job.DownloadedBytes = downloadedBytes
	job.Speed = speed
	job.ETA = eta
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) UpdateJobStatus(_ context.Context, id string, status common.Status, errorMessage, outputFile string, duration float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errorMessage
	if outputFile != "" {
		job.OutputFile = outputFile
	}
	if duration > 0 {
		job.Duration = duration
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetSettings(_ context.Context) (common.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s common.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *Memory) Close() error { return nil }
