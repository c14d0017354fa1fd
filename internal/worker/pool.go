// Package worker provides a parallel worker pool for pre-computing
// bounding box responses.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/types"
)

// Warmer computes and caches the response for a bounding box.
type Warmer interface {
	Warm(ctx context.Context, bbox types.BoundingBox) (size int, err error)
}

// Task is a single bounding box to warm.
type Task struct {
	BBox types.BoundingBox
}

// Result is the outcome of a warm-up task.
type Result struct {
	Task    Task
	Size    int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Warmer     Warmer
	OnProgress ProgressFunc
}

// Pool runs warm-up tasks in parallel.
type Pool struct {
	workers    int
	warmer     Warmer
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		warmer:     cfg.Warmer,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns their results in completion order.
// It blocks until every task is done or the context is cancelled; tasks not
// started before cancellation are reported with the context error.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		completed, failed := 0, 0
		for result := range resultCh {
			results = append(results, result)

			completed++
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks until the task channel is drained.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		size, err := p.warmer.Warm(ctx, task.BBox)
		results <- Result{
			Task:    task,
			Size:    size,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
