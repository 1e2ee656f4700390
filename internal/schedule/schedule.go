// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schedule implements the two levels of parallelism of spec.md
// §5: a coarse per-(tissue, species-pair) worker pool with
// ResourceExhausted retry, and a fine per-row worker pool that preserves
// input order. Both are bounded sync.WaitGroup fan-outs over a
// channel-fed semaphore, in the manner of the teacher's own
// distributeCounts/leafiestFor concurrency, generalised from a
// fixed small fan-out to an arbitrarily large, worker-capped one.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/kortschak/orthoclique/internal/failure"
)

// Parallel runs fn(i) for every i in [0, n) across at most workers
// goroutines at a time, and returns the results in input order (spec.md
// §5's "Ordering guarantees": "Comparison rows are written in input-row
// order"). The first error encountered is returned; all in-flight calls
// still run to completion, but fn is not invoked for indices beyond
// those already dispatched once an error has been recorded.
func Parallel(n, workers int, fn func(i int) (interface{}, error)) ([]interface{}, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]interface{}, n)
	errs := make([]error, n)

	sem := make(chan struct{}, workers)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errSeen bool
	)
	for i := 0; i < n; i++ {
		i := i
		sem <- struct{}{}
		mu.Lock()
		stop := errSeen
		mu.Unlock()
		if stop {
			<-sem
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := fn(i)
			out[i] = v
			errs[i] = err
			if err != nil {
				mu.Lock()
				errSeen = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PairTask is one (tissue, species-pair) unit of coarse-grained work.
type PairTask struct {
	Label string
	Run   func(ctx context.Context, memoryBudget int64) error
}

// PairResult is the outcome of one PairTask.
type PairResult struct {
	Label string
	Err   error
}

// PairPoolConfig bundles the coarse scheduler's tunables (spec.md §5,
// §6's concurrency keys).
type PairPoolConfig struct {
	MaxWorkers          int
	MaxRetries          int
	PairWallTime        time.Duration
	InitialMemoryBudget int64
}

// RunPairPool dispatches tasks across at most cfg.MaxWorkers concurrent
// goroutines. A task failing with failure.ResourceExhausted is retried
// with a doubled memory budget up to cfg.MaxRetries times; any other
// failure, or exhaustion of retries, is recorded and does not cancel
// other tasks (spec.md §5, "Failures in one pair do not cancel others").
func RunPairPool(ctx context.Context, tasks []PairTask, cfg PairPoolConfig) []PairResult {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	results := make([]PairResult, len(tasks))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, t := range tasks {
		i, t := i, t
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runWithRetry(ctx, t, cfg)
		}()
	}
	wg.Wait()
	return results
}

func runWithRetry(ctx context.Context, t PairTask, cfg PairPoolConfig) PairResult {
	budget := cfg.InitialMemoryBudget
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		taskCtx := ctx
		var cancel context.CancelFunc
		if cfg.PairWallTime > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, cfg.PairWallTime)
		}
		err = t.Run(taskCtx, budget)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return PairResult{Label: t.Label}
		}
		if !failure.Retryable(err) {
			break
		}
		budget *= 2
	}
	return PairResult{Label: t.Label, Err: err}
}
