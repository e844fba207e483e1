package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/file"
	"github.com/MimeLyc/srt-translator/pkg/icron"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// BatchEnqueuer accepts batch runs for background processing.
type BatchEnqueuer interface {
	EnqueueBatch(source, dedupeKey string, paths []string, req translator.Request) (id string, created bool)
}

type SchedulerConfig struct {
	CronExpr  string
	WatchDirs []string
	Request   translator.Request
	Naming    NamingPolicy
}

// Scheduler scans watch directories on a cron schedule and enqueues every
// untranslated .srt file modified since the previous scan.
type Scheduler struct {
	cfg      SchedulerConfig
	cron     *cron.Cron
	enqueuer BatchEnqueuer
	now      func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	lastScan time.Time
}

func NewScheduler(cfg SchedulerConfig, c *cron.Cron, enqueuer BatchEnqueuer) *Scheduler {
	if cfg.Naming == nil {
		cfg.Naming = LanguageInfixNaming{Tag: DefaultLanguageInfix}
	}
	return &Scheduler{
		cfg:      cfg,
		cron:     c,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

// Schedule registers the scan with the cron runner.
func (s *Scheduler) Schedule(ctx context.Context) error {
	log.Info("Scheduling scans of %v with %q", s.cfg.WatchDirs, s.cfg.CronExpr)
	_, err := s.cron.AddFunc(s.cfg.CronExpr, func() {
		if _, err := s.Scan(ctx); err != nil {
			log.Error("Scheduled scan failed: %v", err)
		}
	})
	return err
}

// NextTrigger describes the schedule around now.
func (s *Scheduler) NextTrigger() (*icron.TriggerInfo, error) {
	return icron.GetTriggerInfo(s.cfg.CronExpr, s.now())
}

// Scan looks for new subtitles and enqueues them as one batch. Overlapping
// calls share a single scan. It returns the queued run id, or "" when there
// was nothing to do.
func (s *Scheduler) Scan(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("scan", func() (any, error) {
		return s.scan(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Scheduler) scan(ctx context.Context) (string, error) {
	started := s.now()
	since := s.scanWindowStart(started)

	var found []string
	for _, dir := range s.cfg.WatchDirs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		paths, err := s.findPending(dir, since)
		if err != nil {
			log.Error("Failed to scan %s: %v", dir, err)
			continue
		}
		log.Info("Found %d subtitle(s) to translate in %s", len(paths), dir)
		found = append(found, paths...)
	}

	s.mu.Lock()
	s.lastScan = started
	s.mu.Unlock()

	if len(found) == 0 {
		return "", nil
	}
	sort.Strings(found)

	id, created := s.enqueuer.EnqueueBatch("schedule", dedupeKey(found), found, s.cfg.Request)
	if !created {
		log.Info("Scan matched run %s which is still active", id)
	}
	return id, nil
}

// scanWindowStart is the previous scan time, or before the first scan, the
// cron activation preceding the current one.
func (s *Scheduler) scanWindowStart(now time.Time) time.Time {
	s.mu.Lock()
	last := s.lastScan
	s.mu.Unlock()
	if !last.IsZero() {
		return last
	}

	info, err := icron.GetTriggerInfo(s.cfg.CronExpr, now.Add(-time.Minute))
	if err != nil || info.Last.IsZero() {
		return time.Time{}
	}
	return info.Last
}

func (s *Scheduler) findPending(dir string, since time.Time) ([]string, error) {
	recent, err := file.FindRecentAfter(dir, since, ".srt")
	if err != nil {
		return nil, err
	}

	ret := make([]string, 0, len(recent))
	for _, path := range recent {
		if s.cfg.Naming.IsOutput(path) {
			continue
		}
		if file.Exists(s.cfg.Naming.OutputPath(path)) {
			continue
		}
		ret = append(ret, path)
	}
	return ret, nil
}

func dedupeKey(paths []string) string {
	h := sha1.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "schedule:" + hex.EncodeToString(h.Sum(nil))
}
