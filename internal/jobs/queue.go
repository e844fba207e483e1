package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Executor runs one batch, reporting progress through report.
type Executor func(ctx context.Context, run *Run, report service.BatchProgressFunc) (*service.BatchResult, error)

// ErrInterrupted marks runs that were active when the process stopped.
var ErrInterrupted = errors.New("interrupted by restart")

var errCanceledByUser = errors.New("canceled by user")

type Queue struct {
	workerCount int
	maxRuns     int
	store       Store

	mu         sync.RWMutex
	runs       map[string]*Run
	dedupe     map[string]string
	cancels    map[string]context.CancelFunc
	idCounter  uint64
	started    bool
	pendingIDs chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewQueue creates a queue. One worker keeps backend calls sequential.
func NewQueue(workerCount int, store Store) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		workerCount: workerCount,
		maxRuns:     1000,
		store:       store,
		runs:        make(map[string]*Run),
		dedupe:      make(map[string]string),
		cancels:     make(map[string]context.CancelFunc),
		pendingIDs:  make(chan string, 1024),
		stopCh:      make(chan struct{}),
		baseCtx:     ctx,
		baseCancel:  cancel,
	}
	q.hydrateFromStore(context.Background())
	return q
}

func (q *Queue) Enqueue(req EnqueueRequest) (*Run, bool) {
	now := time.Now()

	q.mu.Lock()
	if req.DedupeKey != "" {
		if id, ok := q.dedupe[req.DedupeKey]; ok {
			if existing, exists := q.runs[id]; exists {
				snapshot := cloneRun(existing)
				q.mu.Unlock()
				return snapshot, false
			}
			delete(q.dedupe, req.DedupeKey)
		}
	}

	id := fmt.Sprintf("run-%d", atomic.AddUint64(&q.idCounter, 1))
	run := &Run{
		ID:        id,
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.runs[id] = run
	if req.DedupeKey != "" {
		q.dedupe[req.DedupeKey] = id
	}
	started := q.started
	snapshot := cloneRun(run)
	q.updateDepthLocked()
	q.mu.Unlock()

	q.persistRun(snapshot)
	if started {
		q.enqueuePendingID(id)
	}
	log.Info("Queued run %s (%s, %d files)", id, req.Source, len(req.Payload.Paths))
	return snapshot, true
}

// EnqueueBatch adapts Enqueue for callers that only know paths and languages.
func (q *Queue) EnqueueBatch(source, dedupeKey string, paths []string, req translator.Request) (string, bool) {
	run, created := q.Enqueue(EnqueueRequest{
		Source:    source,
		DedupeKey: dedupeKey,
		Payload: Payload{
			Paths:          paths,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
		},
	})
	return run.ID, created
}

func (q *Queue) Get(id string) (*Run, bool) {
	q.mu.RLock()
	run, ok := q.runs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneRun(run), true
}

// List returns all runs, newest first.
func (q *Queue) List() []*Run {
	q.mu.RLock()
	ret := make([]*Run, 0, len(q.runs))
	for _, run := range q.runs {
		ret = append(ret, cloneRun(run))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].CreatedAt.After(ret[j].CreatedAt)
		}
		return runNumber(ret[i].ID) > runNumber(ret[j].ID)
	})
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]*Run, 0)
	for _, run := range q.runs {
		if run.Status == StatusPending {
			pending = append(pending, run)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return runNumber(pending[i].ID) < runNumber(pending[j].ID) })
	q.mu.Unlock()

	for _, run := range pending {
		q.enqueuePendingID(run.ID)
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels running batches and waits for the workers to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.baseCancel()
		q.wg.Wait()
	})
}

// Cancel stops a pending or running run. A pending run fails immediately;
// a running one stops at its next caption boundary.
func (q *Queue) Cancel(id string) (*Run, error) {
	q.mu.Lock()
	run, ok := q.runs[id]
	if !ok {
		q.mu.Unlock()
		return nil, fmt.Errorf("run %s not found", id)
	}

	switch run.Status {
	case StatusPending:
		snapshot, pruned := q.finishLocked(run, nil, errCanceledByUser)
		q.mu.Unlock()
		q.afterFinish(snapshot, pruned)
		return snapshot, nil
	case StatusRunning:
		cancel := q.cancels[id]
		snapshot := cloneRun(run)
		q.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return snapshot, nil
	default:
		snapshot := cloneRun(run)
		q.mu.Unlock()
		return snapshot, fmt.Errorf("run %s already %s", id, run.Status)
	}
}

// UpdateProgress stores the latest progress event of a running run.
func (q *Queue) UpdateProgress(id string, p service.BatchProgress) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[id]
	if !ok || run.Status != StatusRunning {
		return
	}
	progress := p
	run.Progress = &progress
	run.UpdatedAt = time.Now()
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case id := <-q.pendingIDs:
			run, ctx, ok := q.markRunning(id)
			if !ok {
				continue
			}

			var result *service.BatchResult
			err := service.SafeExecute(func() error {
				var execErr error
				result, execErr = exec(ctx, run, func(p service.BatchProgress) {
					q.UpdateProgress(id, p)
				})
				return execErr
			})
			q.markFinished(id, result, err)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() { q.pendingIDs <- id }()
	}
}

func (q *Queue) markRunning(id string) (*Run, context.Context, bool) {
	q.mu.Lock()
	run, ok := q.runs[id]
	if !ok || run.Status != StatusPending {
		q.mu.Unlock()
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(q.baseCtx)
	q.cancels[id] = cancel
	run.Status = StatusRunning
	run.UpdatedAt = time.Now()
	snapshot := cloneRun(run)
	q.updateDepthLocked()
	q.mu.Unlock()

	q.persistRun(snapshot)
	log.GetLogger().With("run", id).Info("Run started (%d files)", len(snapshot.Payload.Paths))
	return snapshot, ctx, true
}

func (q *Queue) markFinished(id string, result *service.BatchResult, err error) {
	q.mu.Lock()
	run, ok := q.runs[id]
	if !ok || run.Status.Terminal() {
		q.mu.Unlock()
		return
	}
	snapshot, pruned := q.finishLocked(run, result, err)
	q.mu.Unlock()

	q.afterFinish(snapshot, pruned)
}

func (q *Queue) finishLocked(run *Run, result *service.BatchResult, err error) (*Run, []string) {
	if cancel, ok := q.cancels[run.ID]; ok {
		cancel()
		delete(q.cancels, run.ID)
	}

	if result != nil {
		run.Results = result.Results
	}
	run.Status = finalStatus(result, err)
	run.Error = ""
	if err != nil {
		run.Error = err.Error()
	}
	run.UpdatedAt = time.Now()
	q.releaseDedupeLocked(run)
	q.updateDepthLocked()
	pruned := q.pruneTerminalRunsLocked()
	return cloneRun(run), pruned
}

func (q *Queue) afterFinish(snapshot *Run, pruned []string) {
	metrics.RecordBatchCompleted(string(snapshot.Status))
	runLog := log.GetLogger().With("run", snapshot.ID)
	if snapshot.Status == StatusSuccess {
		runLog.Info("Run finished: %s", snapshot.Status)
	} else {
		runLog.Warn("Run finished: %s %s", snapshot.Status, snapshot.Error)
	}
	q.persistRun(snapshot)
	q.deleteRunsFromStore(pruned)
}

func finalStatus(result *service.BatchResult, err error) Status {
	if err != nil {
		return StatusFailed
	}
	if result == nil || !result.HasFailures() {
		return StatusSuccess
	}
	if len(result.Succeeded()) == 0 {
		return StatusFailed
	}
	return StatusPartial
}

func (q *Queue) releaseDedupeLocked(run *Run) {
	if run == nil || run.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[run.DedupeKey]; ok && id == run.ID {
		delete(q.dedupe, run.DedupeKey)
	}
}

func (q *Queue) updateDepthLocked() {
	pending := 0
	for _, run := range q.runs {
		if run.Status == StatusPending {
			pending++
		}
	}
	metrics.SetQueueDepth(pending)
}

func (q *Queue) pruneTerminalRunsLocked() []string {
	if q.maxRuns <= 0 || len(q.runs) <= q.maxRuns {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.runs))
	for id, run := range q.runs {
		if run == nil || !run.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: run.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.runs)-q.maxRuns, len(terminal))
	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		q.releaseDedupeLocked(q.runs[id])
		delete(q.runs, id)
		pruned = append(pruned, id)
	}
	return pruned
}

func (q *Queue) deleteRunsFromStore(ids []string) {
	if q.store == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := q.store.DeleteRun(context.Background(), id); err != nil {
			log.Error("Failed to delete pruned run %s from store: %v", id, err)
		}
	}
}

// hydrateFromStore loads history. Runs that were still pending or running
// are marked failed; partial progress is not resumed.
func (q *Queue) hydrateFromStore(ctx context.Context) {
	if q.store == nil {
		return
	}
	loaded, err := q.store.LoadRuns(ctx)
	if err != nil {
		log.Error("Failed to load runs from store: %v", err)
		return
	}

	now := time.Now()
	toPersist := make([]*Run, 0)
	q.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		run := cloneRun(raw)
		if !run.Status.Terminal() {
			run.Status = StatusFailed
			run.Error = ErrInterrupted.Error()
			run.Progress = nil
			run.UpdatedAt = now
			toPersist = append(toPersist, cloneRun(run))
		}
		q.runs[run.ID] = run
		q.updateIDCounterLocked(run.ID)
	}
	q.mu.Unlock()

	for _, run := range toPersist {
		log.Warn("Run %s was interrupted by a restart", run.ID)
		q.persistRun(run)
	}
}

func (q *Queue) updateIDCounterLocked(runID string) {
	if n := runNumber(runID); n > q.idCounter {
		q.idCounter = n
	}
}

func runNumber(runID string) uint64 {
	if !strings.HasPrefix(runID, "run-") {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(runID, "run-"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (q *Queue) persistRun(run *Run) {
	if q.store == nil || run == nil {
		return
	}
	if err := q.store.UpsertRun(context.Background(), run); err != nil {
		log.Error("Failed to persist run %s: %v", run.ID, err)
	}
}

func cloneRun(run *Run) *Run {
	if run == nil {
		return nil
	}
	tmp := *run
	tmp.Payload.Paths = append([]string(nil), run.Payload.Paths...)
	if run.Progress != nil {
		p := *run.Progress
		tmp.Progress = &p
	}
	if run.Results != nil {
		tmp.Results = append([]service.JobResult(nil), run.Results...)
	}
	return &tmp
}
