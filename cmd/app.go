package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MimeLyc/srt-translator/internal/backend"
	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

type backendFactory func(cfg *config.Config) (translator.Backend, func() error, error)

// app carries global flags and the seams tests replace.
type app struct {
	configFile string
	logLevel   string

	newBackend backendFactory
	closers    []func() error
}

func defaultApp() *app {
	return &app{newBackend: backend.New}
}

func (a *app) loadConfig(opts ...config.Option) (*config.Config, error) {
	if a.logLevel != "" {
		opts = append(opts, config.WithLogLevel(a.logLevel))
	}
	path := a.configFile
	if path == "" {
		path = os.Getenv("SRTTRANS_CONFIG")
	}
	cfg, err := config.Load(path, opts...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "failed to load configuration")
	}
	if err := a.setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) setupLogging(cfg config.LogConfig) error {
	level := log.ParseLevel(cfg.Level)
	if cfg.File == "" {
		log.SetLogger(log.NewLoggerWithWriter(level, os.Stderr, log.Format(cfg.Format)))
		return nil
	}
	fl, err := log.NewFileLogger(cfg.File, level)
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "failed to open log file")
	}
	log.SetLogger(fl.Logger)
	a.closers = append(a.closers, fl.Close)
	return nil
}

// buildJob wires backend, translator and file job from cfg.
func (a *app) buildJob(cfg *config.Config) (*service.FileJob, error) {
	b, closeBackend, err := a.newBackend(cfg)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "failed to create translation backend")
	}
	a.closers = append(a.closers, closeBackend)

	tr := translator.New(b, translator.WithCallDelay(cfg.Translate.CallDelay))
	return service.NewFileJob(tr, service.WithProgressEvery(cfg.Translate.ProgressEvery)), nil
}

func namingFor(cfg config.TranslateConfig, kind string) (service.NamingPolicy, error) {
	if kind == "" {
		kind = cfg.Naming
	}
	return service.NewNamingPolicy(kind, cfg.Suffix, cfg.LanguageInfix)
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
	}
}
