package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/file"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Coordinator runs one FileJob per input path, in order, one at a time.
type Coordinator struct {
	job    *FileJob
	naming NamingPolicy
}

// NewCoordinator builds a coordinator writing outputs named by naming.
func NewCoordinator(job *FileJob, naming NamingPolicy) *Coordinator {
	if naming == nil {
		naming = LanguageInfixNaming{Tag: DefaultLanguageInfix}
	}
	return &Coordinator{job: job, naming: naming}
}

// Run validates that every path exists, then translates them sequentially.
// A failing file is recorded in the result and the batch moves on. When ctx
// is canceled the current and remaining files are recorded as canceled and
// the partial result is returned with an ErrCanceled error.
func (c *Coordinator) Run(
	ctx context.Context,
	paths []string,
	req translator.Request,
	onProgress BatchProgressFunc,
) (*BatchResult, error) {
	if err := c.validate(paths, req); err != nil {
		return nil, err
	}

	n := len(paths)
	result := &BatchResult{Results: make([]JobResult, 0, n)}
	log.Info("Starting batch of %d files (%s)", n, req)

	for j, path := range paths {
		j, path := j, path // per-iteration copies (pre-Go 1.22 loop semantics)
		if err := ctx.Err(); err != nil {
			return result, c.cancelRemaining(result, paths[j:], err)
		}

		fileIndex := j + 1
		name := filepath.Base(path)
		wrap := func(p Progress) {
			if onProgress == nil {
				return
			}
			onProgress(BatchProgress{
				Progress:   p,
				Overall:    (float64(j) + p.Fraction()) / float64(n),
				FileIndex:  fileIndex,
				TotalFiles: n,
				FileName:   name,
			})
		}

		start := time.Now()
		var jr JobResult
		err := SafeExecute(func() error {
			var runErr error
			jr, runErr = c.job.run(ctx, path, c.naming.OutputPath(path), req, wrap)
			return runErr
		})
		jr.InputPath = path

		if err != nil {
			if IsErrorType(err, ErrCanceled) {
				jr.fail(err)
				result.Results = append(result.Results, jr)
				metrics.RecordFileProcessed("canceled", time.Since(start).Seconds())
				return result, c.cancelRemaining(result, paths[j+1:], err)
			}
			jobErr := WrapError(err, ErrFileJob, "file translation failed").WithContext("file", path)
			jr.fail(jobErr)
			log.Warn("Skipping %s after failure (%d/%d): %v", name, fileIndex, n, err)
			metrics.RecordFileProcessed("failed", time.Since(start).Seconds())
		} else {
			metrics.RecordFileProcessed("success", time.Since(start).Seconds())
		}
		result.Results = append(result.Results, jr)
	}

	log.Info("Batch finished: %d succeeded, %d failed", len(result.Succeeded()), len(result.Failed()))
	return result, nil
}

func (c *Coordinator) validate(paths []string, req translator.Request) error {
	if len(paths) == 0 {
		return NewError(ErrBatchValidation, "no input files given")
	}
	if err := req.Validate(); err != nil {
		return WrapError(err, ErrBatchValidation, "invalid language pair")
	}

	var missing []string
	for _, p := range paths {
		if !file.Exists(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return NewError(ErrBatchValidation, fmt.Sprintf("%d input file(s) not found", len(missing))).
			WithContext("missing", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Coordinator) cancelRemaining(result *BatchResult, remaining []string, cause error) error {
	for _, p := range remaining {
		jr := JobResult{InputPath: p}
		jr.fail(NewErrorWithCause(ErrCanceled, "not started before cancellation", cause).WithContext("file", p))
		result.Results = append(result.Results, jr)
	}
	log.Warn("Batch canceled: %d of %d files not translated", len(result.Failed()), len(result.Results))
	if IsErrorType(cause, ErrCanceled) {
		return cause
	}
	return NewErrorWithCause(ErrCanceled, "batch canceled", cause)
}
