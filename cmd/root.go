package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "srt-translator <file.srt> [source] [target]",
		Short: "Translate SRT subtitle files caption by caption",
		Long: `srt-translator translates the text of SRT subtitle files while keeping
every caption's index and timing untouched.

With a single file it writes <name>_translated.srt next to the input.
Source defaults to auto detection and target to the configured language.`,
		Args:          reportArgs(cobra.RangeArgs(1, 3)),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSingle(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default $SRTTRANS_CONFIG)")

	root.AddCommand(newBatchCmd(a), newServeCmd(a))
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	})
	return root
}

// reportArgs prints argument errors, which the root's SilenceErrors hides.
// Cobra still prints the usage afterwards.
func reportArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return err
		}
		return nil
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (a *app) runSingle(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	input := args[0]

	var opts []config.Option
	if len(args) > 1 {
		opts = append(opts, config.WithSourceLanguage(args[1]))
	}
	if len(args) > 2 {
		opts = append(opts, config.WithTargetLanguage(args[2]))
	}
	if _, err := os.Stat(input); err != nil {
		return a.fail(cmd, service.NewErrorWithCause(service.ErrFileNotFound, "input file not found", err).WithContext("file", input))
	}

	cfg, err := a.loadConfig(opts...)
	if err != nil {
		return a.fail(cmd, err)
	}
	defer a.close()

	req, err := translator.NewRequest(cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
	if err != nil {
		return a.fail(cmd, service.WrapError(err, service.ErrConfig, "invalid language pair"))
	}
	job, err := a.buildJob(cfg)
	if err != nil {
		return a.fail(cmd, err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	naming := service.SuffixNaming{Suffix: cfg.Translate.Suffix}
	result, err := runBatch(ctx, cmd.OutOrStdout(), service.NewCoordinator(job, naming), []string{input}, req)
	if err != nil {
		return a.fail(cmd, err)
	}
	if result.HasFailures() {
		return a.fail(cmd, result.Failed()[0].Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", result.Results[0].OutputPath)
	return nil
}

// fail prints err with advice on stderr and returns it for the exit code.
func (a *app) fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	var transErr *service.TransError
	if errors.As(err, &transErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", service.NewDefaultErrorHandler().GetAdvice(transErr))
	}
	return err
}
