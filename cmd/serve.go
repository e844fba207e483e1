package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/httpapi"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/persistence"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the run queue and the optional directory scheduler",
		Args:  reportArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			var opts []config.Option
			if addr != "" {
				opts = append(opts, func(c *config.Config) { c.Server.Addr = addr })
			}
			if err := a.serve(cmd.Context(), opts...); err != nil {
				return a.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (a *app) serve(parent context.Context, opts ...config.Option) error {
	cfg, err := a.loadConfig(opts...)
	if err != nil {
		return err
	}
	defer a.close()

	defaults, err := translator.NewRequest(cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "invalid default language pair")
	}
	job, err := a.buildJob(cfg)
	if err != nil {
		return err
	}

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "failed to open run history")
	}
	a.closers = append(a.closers, store.Close)

	queue := jobs.NewQueue(1, store)
	queue.Start(batchExecutor(job, cfg.Translate))
	defer queue.Stop()

	serverOpts := []httpapi.Option{httpapi.WithDefaultRequest(defaults)}
	var sched scheduler
	var engine cronEngine
	if cfg.Schedule.Enabled() {
		naming, err := namingFor(cfg.Translate, "")
		if err != nil {
			return err
		}
		c := cron.New()
		s := service.NewScheduler(service.SchedulerConfig{
			CronExpr:  cfg.Schedule.Cron,
			WatchDirs: cfg.Schedule.WatchDirs,
			Request:   defaults,
			Naming:    naming,
		}, c, queue)
		serverOpts = append(serverOpts, httpapi.WithScheduler(s))
		sched, engine = s, c
	}
	srv := httpapi.NewServer(queue, serverOpts...)

	ctx, stop := signalContext(parent)
	defer stop()
	return runWithComponents(ctx, cfg, sched, engine, srv)
}

// batchExecutor runs a queued batch with the run's naming, or the
// configured naming when the run does not choose one.
func batchExecutor(job *service.FileJob, cfg config.TranslateConfig) jobs.Executor {
	return func(ctx context.Context, run *jobs.Run, report service.BatchProgressFunc) (*service.BatchResult, error) {
		naming, err := namingFor(cfg, run.Payload.Naming)
		if err != nil {
			return nil, err
		}
		return service.NewCoordinator(job, naming).Run(ctx, run.Payload.Paths, run.Payload.Request(), report)
	}
}

func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if sched != nil {
		if err := sched.Schedule(ctx); err != nil {
			return service.WrapError(err, service.ErrConfig, "failed to schedule directory scans")
		}
		engine.Start()
		defer engine.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
