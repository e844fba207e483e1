package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

type batchFlags struct {
	source string
	target string
	naming string
}

func newBatchCmd(a *app) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "batch <file.srt>...",
		Short: "Translate several subtitle files in order",
		Long: `Translate the given files one after another under one language pair.
A file that fails is reported and the batch continues with the next one.
The exit code is 1 when any file failed.`,
		Args: reportArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatchCmd(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.source, "source", "s", "", "source language or auto (default from config)")
	cmd.Flags().StringVarP(&flags.target, "target", "t", "", "target language (default from config)")
	cmd.Flags().StringVar(&flags.naming, "naming", "", "output naming: suffix or language (default from config)")
	return cmd
}

func (a *app) runBatchCmd(cmd *cobra.Command, paths []string, flags batchFlags) error {
	cmd.SilenceUsage = true

	var opts []config.Option
	if flags.source != "" {
		opts = append(opts, config.WithSourceLanguage(flags.source))
	}
	if flags.target != "" {
		opts = append(opts, config.WithTargetLanguage(flags.target))
	}
	if flags.naming != "" {
		opts = append(opts, config.WithNaming(flags.naming))
	}
	cfg, err := a.loadConfig(opts...)
	if err != nil {
		return a.fail(cmd, err)
	}
	defer a.close()

	req, err := translator.NewRequest(cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
	if err != nil {
		return a.fail(cmd, service.WrapError(err, service.ErrBatchValidation, "invalid language pair"))
	}
	naming, err := namingFor(cfg.Translate, "")
	if err != nil {
		return a.fail(cmd, err)
	}
	job, err := a.buildJob(cfg)
	if err != nil {
		return a.fail(cmd, err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	result, runErr := runBatch(ctx, cmd.OutOrStdout(), service.NewCoordinator(job, naming), paths, req)
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
	}
	if runErr != nil {
		return a.fail(cmd, runErr)
	}
	if result.HasFailures() {
		return a.fail(cmd, fmt.Errorf("%d of %d files failed", len(result.Failed()), len(result.Results)))
	}
	return nil
}
