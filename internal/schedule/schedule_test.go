// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/kortschak/orthoclique/internal/failure"
)

func TestParallelPreservesInputOrder(t *testing.T) {
	n := 50
	out, err := Parallel(n, 8, func(i int) (interface{}, error) {
		return i * i, nil
	})
	if err != nil {
		t.Fatalf("Parallel error: %v", err)
	}
	for i := 0; i < n; i++ {
		if out[i].(int) != i*i {
			t.Errorf("out[%d] = %v, want %d", i, out[i], i*i)
		}
	}
}

func TestParallelReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Parallel(10, 4, func(i int) (interface{}, error) {
		if i == 3 {
			return nil, boom
		}
		return i, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("Parallel() error = %v, want %v", err, boom)
	}
}

func TestRunPairPoolRetriesResourceExhausted(t *testing.T) {
	var attempts int32
	tasks := []PairTask{
		{
			Label: "p1",
			Run: func(ctx context.Context, budget int64) error {
				n := atomic.AddInt32(&attempts, 1)
				if n < 3 {
					return failure.New(failure.ResourceExhausted, "test", nil)
				}
				return nil
			},
		},
	}
	results := RunPairPool(context.Background(), tasks, PairPoolConfig{MaxWorkers: 1, MaxRetries: 5, InitialMemoryBudget: 1})
	if results[0].Err != nil {
		t.Errorf("RunPairPool result.Err = %v, want nil after retries succeed", results[0].Err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunPairPoolGivesUpAfterMaxRetries(t *testing.T) {
	tasks := []PairTask{
		{
			Label: "p1",
			Run: func(ctx context.Context, budget int64) error {
				return failure.New(failure.ResourceExhausted, "test", nil)
			},
		},
	}
	results := RunPairPool(context.Background(), tasks, PairPoolConfig{MaxWorkers: 1, MaxRetries: 2, InitialMemoryBudget: 1})
	if results[0].Err == nil {
		t.Fatal("RunPairPool result.Err = nil, want error after exhausting retries")
	}
	if kind, ok := failure.KindOf(results[0].Err); !ok || kind != failure.ResourceExhausted {
		t.Errorf("kind = %v, %v, want ResourceExhausted, true", kind, ok)
	}
}

func TestRunPairPoolDoesNotRetryNonRetryableFailures(t *testing.T) {
	var attempts int32
	tasks := []PairTask{
		{
			Label: "p1",
			Run: func(ctx context.Context, budget int64) error {
				atomic.AddInt32(&attempts, 1)
				return failure.New(failure.InputMalformed, "test", nil)
			},
		},
	}
	RunPairPool(context.Background(), tasks, PairPoolConfig{MaxWorkers: 1, MaxRetries: 5, InitialMemoryBudget: 1})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable failure should not retry)", attempts)
	}
}

func TestRunPairPoolIsolatesFailures(t *testing.T) {
	tasks := []PairTask{
		{Label: "fails", Run: func(ctx context.Context, budget int64) error {
			return failure.New(failure.InputMalformed, "test", nil)
		}},
		{Label: "succeeds", Run: func(ctx context.Context, budget int64) error {
			return nil
		}},
	}
	results := RunPairPool(context.Background(), tasks, PairPoolConfig{MaxWorkers: 2, MaxRetries: 0, InitialMemoryBudget: 1})
	if results[0].Err == nil {
		t.Error("results[0].Err = nil, want error")
	}
	if results[1].Err != nil {
		t.Errorf("results[1].Err = %v, want nil (a sibling failure must not cancel this task)", results[1].Err)
	}
}
