// Package batch expands an audit into tasks and runs them across a
// bounded worker pool with per-task failure isolation.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/perfgate/pagecheck/internal/result"
)

// Fetcher executes one task. Implementations must report failure as
// data on the Result, never by panicking.
type Fetcher interface {
	Fetch(ctx context.Context, url, strategy string) result.Result
}

// Observer is invoked once per completed task, in completion order,
// under the same lock as result collection. Used for progress output
// and incremental emission; it must not assume any task ordering.
type Observer func(result.Result)

type Opts struct {
	URLs       []string
	Strategies []string
	Runs       int
	Workers    int
	Observer   Observer
}

// Tasks enumerates urls × strategies once per pass and repeats the
// whole pass runs times. Interleaving the passes keeps repeated
// measurements of one page apart in time, so warmed caches on the
// remote side bias them less.
func Tasks(urls, strategies []string, runs int) []result.Task {
	if runs < 1 {
		runs = 1
	}
	tasks := make([]result.Task, 0, len(urls)*len(strategies)*runs)
	for run := 0; run < runs; run++ {
		for _, u := range urls {
			for _, s := range strategies {
				tasks = append(tasks, result.Task{URL: u, Strategy: s, Run: run})
			}
		}
	}
	return tasks
}

// Run executes every task and returns exactly one Result per task, in
// task order. A task failure is recorded on its Result and never
// aborts or delays sibling tasks. The only fatal error is an empty
// task list.
func Run(ctx context.Context, fetcher Fetcher, opts Opts) ([]result.Result, error) {
	tasks := Tasks(opts.URLs, opts.Strategies, opts.Runs)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to run: empty URL or strategy list")
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]result.Result, len(tasks))

	if workers == 1 {
		for i, task := range tasks {
			results[i] = fetcher.Fetch(ctx, task.URL, task.Strategy)
			if opts.Observer != nil {
				opts.Observer(results[i])
			}
		}
		return results, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, workers)
	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task result.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			res := fetcher.Fetch(ctx, task.URL, task.Strategy)
			mu.Lock()
			results[i] = res
			if opts.Observer != nil {
				opts.Observer(res)
			}
			mu.Unlock()
		}(i, task)
	}
	wg.Wait()
	return results, nil
}
