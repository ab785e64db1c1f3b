// Package worker provides a parallel candidate scoring pool.
package worker

import (
	"context"
	"sync"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
)

// Scorer is the interface for candidate scoring.
type Scorer interface {
	Score(ctx context.Context, st stroke.Stroke) (float64, error)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(ctx context.Context, st stroke.Stroke) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, st stroke.Stroke) (float64, error) {
	return f(ctx, st)
}

// Task is a single candidate to score.
type Task struct {
	Index  int
	Stroke stroke.Stroke
}

// Result is the outcome of scoring a task.
type Result struct {
	Task  Task
	Score float64
	Err   error
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	OnProgress ProgressFunc
}

// Pool scores candidates in parallel.
type Pool struct {
	workers    int
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
		onProgress: cfg.OnProgress,
	}
}

// Workers returns the configured parallelism.
func (p *Pool) Workers() int { return p.workers }

// Run scores all tasks with scorer and returns one result per task, in task
// order. It blocks until every task has a result; after ctx is cancelled the
// remaining tasks report ctx.Err().
func (p *Pool) Run(ctx context.Context, scorer Scorer, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))

	// A single worker runs inline; spinning up goroutines per growth
	// iteration is only worth it with real parallelism.
	if p.workers == 1 {
		failed := 0
		for i, task := range tasks {
			results[i] = p.score(ctx, scorer, task)
			if results[i].Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(i+1, len(tasks), failed)
			}
		}
		return results
	}

	taskCh := make(chan int, len(tasks))
	for i := range tasks {
		taskCh <- i
	}
	close(taskCh)

	var (
		completed int
		failed    int
		mu        sync.Mutex
		wg        sync.WaitGroup
	)

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				// Each index is written by exactly one worker.
				results[i] = p.score(ctx, scorer, tasks[i])

				// Progress callbacks are serialised under the lock.
				mu.Lock()
				completed++
				if results[i].Err != nil {
					failed++
				}
				if p.onProgress != nil {
					p.onProgress(completed, len(tasks), failed)
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return results
}

func (p *Pool) score(ctx context.Context, scorer Scorer, task Task) Result {
	select {
	case <-ctx.Done():
		return Result{Task: task, Err: ctx.Err()}
	default:
	}

	s, err := scorer.Score(ctx, task.Stroke)
	return Result{Task: task, Score: s, Err: err}
}
