package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

func okExecutor(_ context.Context, run *Run, _ service.BatchProgressFunc) (*service.BatchResult, error) {
	res := &service.BatchResult{}
	for _, p := range run.Payload.Paths {
		res.Results = append(res.Results, service.JobResult{InputPath: p, OutputPath: p + ".out"})
	}
	return res, nil
}

func waitForStatus(t *testing.T, q *Queue, id string, status Status) *Run {
	t.Helper()
	var got *Run
	require.Eventually(t, func() bool {
		r, ok := q.Get(id)
		if !ok || r == nil {
			return false
		}
		got = r
		return r.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(1, nil)

	runA, createdA := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "a.srt|auto|es"})
	runB, createdB := q.Enqueue(EnqueueRequest{Source: "schedule", DedupeKey: "a.srt|auto|es"})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, runA)
	require.NotNil(t, runB)
	assert.Equal(t, runA.ID, runB.ID)
}

func TestQueue_Enqueue_EmptyKeyNeverDeduplicates(t *testing.T) {
	q := NewQueue(1, nil)

	runA, createdA := q.Enqueue(EnqueueRequest{Source: "manual"})
	runB, createdB := q.Enqueue(EnqueueRequest{Source: "manual"})
	assert.True(t, createdA)
	assert.True(t, createdB)
	assert.NotEqual(t, runA.ID, runB.ID)
}

func TestQueue_Worker_TransitionsStatus(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(okExecutor)
	defer q.Stop()

	run, _ := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "k1",
		Payload:   Payload{Paths: []string{"a.srt", "b.srt"}, SourceLanguage: "auto", TargetLanguage: "es"},
	})

	got := waitForStatus(t, q, run.ID, StatusSuccess)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "a.srt", got.Results[0].InputPath)
	assert.Empty(t, got.Error)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts int
	q.Start(func(ctx context.Context, run *Run, report service.BatchProgressFunc) (*service.BatchResult, error) {
		attempts++
		if attempts == 1 {
			return nil, assert.AnError
		}
		return okExecutor(ctx, run, report)
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "retry-key"})
	require.True(t, created)
	failed := waitForStatus(t, q, first.ID, StatusFailed)
	assert.Equal(t, assert.AnError.Error(), failed.Error)

	second, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "retry-key"})
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	waitForStatus(t, q, second.ID, StatusSuccess)
}

func TestQueue_PartialAndFailedStatus(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(_ context.Context, run *Run, _ service.BatchProgressFunc) (*service.BatchResult, error) {
		res := &service.BatchResult{}
		for _, p := range run.Payload.Paths {
			if p == "bad.srt" {
				res.Results = append(res.Results, service.JobResult{InputPath: p, Error: "boom"})
				continue
			}
			res.Results = append(res.Results, service.JobResult{InputPath: p, OutputPath: p + ".out"})
		}
		return res, nil
	})
	defer q.Stop()

	partial, _ := q.Enqueue(EnqueueRequest{Payload: Payload{Paths: []string{"good.srt", "bad.srt"}}})
	allBad, _ := q.Enqueue(EnqueueRequest{Payload: Payload{Paths: []string{"bad.srt"}}})

	waitForStatus(t, q, partial.ID, StatusPartial)
	waitForStatus(t, q, allBad.ID, StatusFailed)
}

func TestQueue_PanickingExecutorFailsRun(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(context.Context, *Run, service.BatchProgressFunc) (*service.BatchResult, error) {
		panic("executor exploded")
	})
	defer q.Stop()

	run, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
	got := waitForStatus(t, q, run.ID, StatusFailed)
	assert.Contains(t, got.Error, "executor exploded")
}

func TestQueue_UpdateProgress(t *testing.T) {
	q := NewQueue(1, nil)
	release := make(chan struct{})
	q.Start(func(_ context.Context, run *Run, report service.BatchProgressFunc) (*service.BatchResult, error) {
		report(service.BatchProgress{Overall: 0.5, FileIndex: 1, TotalFiles: 2, FileName: "a.srt"})
		<-release
		return okExecutor(context.Background(), run, report)
	})
	defer q.Stop()

	run, _ := q.Enqueue(EnqueueRequest{Payload: Payload{Paths: []string{"a.srt", "b.srt"}}})
	require.Eventually(t, func() bool {
		got, _ := q.Get(run.ID)
		return got.Progress != nil && got.Progress.Overall == 0.5
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := q.Get(run.ID)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, "a.srt", got.Progress.FileName)

	close(release)
	waitForStatus(t, q, run.ID, StatusSuccess)

	// progress for finished runs is ignored
	q.UpdateProgress(run.ID, service.BatchProgress{Overall: 0.1})
	got, _ = q.Get(run.ID)
	assert.Equal(t, 0.5, got.Progress.Overall)
}

func TestQueue_CancelPending(t *testing.T) {
	q := NewQueue(1, nil)

	run, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "k"})
	canceled, err := q.Cancel(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, canceled.Status)
	assert.Contains(t, canceled.Error, "canceled")

	// the key is free again
	_, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "k"})
	assert.True(t, created)

	_, err = q.Cancel(run.ID)
	assert.Error(t, err)
	_, err = q.Cancel("run-999")
	assert.Error(t, err)
}

func TestQueue_CancelRunning(t *testing.T) {
	q := NewQueue(1, nil)
	started := make(chan struct{})
	q.Start(func(ctx context.Context, run *Run, _ service.BatchProgressFunc) (*service.BatchResult, error) {
		close(started)
		<-ctx.Done()
		return &service.BatchResult{}, fmt.Errorf("batch stopped: %w", ctx.Err())
	})
	defer q.Stop()

	run, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
	<-started

	_, err := q.Cancel(run.ID)
	require.NoError(t, err)
	got := waitForStatus(t, q, run.ID, StatusFailed)
	assert.Contains(t, got.Error, context.Canceled.Error())
}

func TestQueue_StopCancelsRunning(t *testing.T) {
	q := NewQueue(1, nil)
	started := make(chan struct{})
	var seen error
	q.Start(func(ctx context.Context, run *Run, _ service.BatchProgressFunc) (*service.BatchResult, error) {
		close(started)
		<-ctx.Done()
		seen = ctx.Err()
		return nil, ctx.Err()
	})

	q.Enqueue(EnqueueRequest{Source: "manual"})
	<-started
	q.Stop()
	assert.True(t, errors.Is(seen, context.Canceled))
}

func TestQueue_ListNewestFirst(t *testing.T) {
	q := NewQueue(1, nil)
	a, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
	b, _ := q.Enqueue(EnqueueRequest{Source: "manual"})

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestQueue_PrunesOldTerminalRuns(t *testing.T) {
	q := NewQueue(1, nil)
	q.maxRuns = 2
	q.Start(okExecutor)
	defer q.Stop()

	var ids []string
	for i := 0; i < 4; i++ {
		run, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
		waitForStatus(t, q, run.ID, StatusSuccess)
		ids = append(ids, run.ID)
	}

	assert.Len(t, q.List(), 2)
	_, ok := q.Get(ids[0])
	assert.False(t, ok)
	_, ok = q.Get(ids[3])
	assert.True(t, ok)
}

func TestQueue_EnqueueBatch(t *testing.T) {
	q := NewQueue(1, nil)

	id, created := q.EnqueueBatch("schedule", "key", []string{"a.srt"}, translator.Request{SourceLanguage: "auto", TargetLanguage: "fr"})
	require.True(t, created)

	run, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, "schedule", run.Source)
	assert.Equal(t, []string{"a.srt"}, run.Payload.Paths)
	assert.Equal(t, translator.Request{SourceLanguage: "auto", TargetLanguage: "fr"}, run.Payload.Request())

	again, created := q.EnqueueBatch("schedule", "key", []string{"a.srt"}, translator.Request{})
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestCloneRun_IsDeep(t *testing.T) {
	orig := &Run{
		ID:       "run-1",
		Payload:  Payload{Paths: []string{"a.srt"}},
		Progress: &service.BatchProgress{Overall: 0.2},
		Results:  []service.JobResult{{InputPath: "a.srt"}},
	}
	c := cloneRun(orig)
	c.Payload.Paths[0] = "changed"
	c.Progress.Overall = 0.9
	c.Results[0].InputPath = "changed"

	assert.Equal(t, "a.srt", orig.Payload.Paths[0])
	assert.Equal(t, 0.2, orig.Progress.Overall)
	assert.Equal(t, "a.srt", orig.Results[0].InputPath)
}
