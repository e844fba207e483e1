package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// DefaultProgressEvery is how many captions pass between progress events.
const DefaultProgressEvery = 3

// CaptionTranslator translates one caption text block and never fails.
type CaptionTranslator interface {
	Translate(ctx context.Context, text string, req translator.Request) string
}

// FileJob translates one subtitle file end to end.
type FileJob struct {
	translator    CaptionTranslator
	reader        subtitle.Reader
	writer        subtitle.Writer
	naming        NamingPolicy
	progressEvery int
}

type JobOption func(*FileJob)

func WithProgressEvery(k int) JobOption {
	return func(j *FileJob) {
		if k > 0 {
			j.progressEvery = k
		}
	}
}

// WithNaming sets the policy used when Run gets no output path.
func WithNaming(n NamingPolicy) JobOption {
	return func(j *FileJob) {
		if n != nil {
			j.naming = n
		}
	}
}

func WithReader(r subtitle.Reader) JobOption {
	return func(j *FileJob) {
		j.reader = r
	}
}

func WithWriter(w subtitle.Writer) JobOption {
	return func(j *FileJob) {
		j.writer = w
	}
}

func NewFileJob(tr CaptionTranslator, opts ...JobOption) *FileJob {
	j := &FileJob{
		translator:    tr,
		reader:        subtitle.NewReader(),
		writer:        subtitle.NewWriter(),
		naming:        SuffixNaming{Suffix: DefaultSuffix},
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run translates input into output and returns the output path. An empty
// output is derived from input with the job's naming policy. onProgress may
// be nil. Any existing output file is overwritten.
func (j *FileJob) Run(
	ctx context.Context,
	input, output string,
	req translator.Request,
	onProgress ProgressFunc,
) (string, error) {
	res, err := j.run(ctx, input, output, req, onProgress)
	if err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

func (j *FileJob) run(
	ctx context.Context,
	input, output string,
	req translator.Request,
	onProgress ProgressFunc,
) (JobResult, error) {
	start := time.Now()
	res := JobResult{InputPath: input}
	emit := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if output == "" {
		output = j.naming.OutputPath(input)
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return res, NewError(ErrFileWrite, "output path would overwrite the input").
			WithContext("input", input)
	}

	sub, err := j.reader.Read(input)
	if err != nil {
		return res, classifyReadError(input, err)
	}
	captions := sub.Captions
	total := len(captions)
	name := filepath.Base(input)
	fileLog := log.GetLogger().With("file", name)

	if req.IsAutoDetect() {
		if tag := subtitle.DetectLanguage(captions); tag != language.Und {
			res.DetectedLanguage = tag.String()
			fileLog.Debug("Detected source language %s", tag)
		}
	}

	fileLog.Info("Translating %d captions (%s)", total, req)
	emit(Progress{Completed: 0, Total: total, Message: fmt.Sprintf("Translating %s", name)})

	translated := make([]subtitle.Caption, 0, total)
	for i, caption := range captions {
		if err := ctx.Err(); err != nil {
			return res, NewErrorWithCause(ErrCanceled, "translation canceled", err).
				WithContext("file", input).
				WithContext("completed", i)
		}

		translated = append(translated, caption.WithText(j.translator.Translate(ctx, caption.Text, req)))
		metrics.CaptionsTranslatedTotal.Inc()

		done := i + 1
		if done%j.progressEvery == 0 && done < total {
			emit(Progress{
				Completed: done,
				Total:     total,
				Message:   fmt.Sprintf("Translated %d/%d captions of %s", done, total, name),
			})
		}
	}

	out := &subtitle.File{
		Path:     output,
		Captions: translated,
		Encoding: subtitle.EncodingUTF8,
		Format:   sub.Format,
	}
	if err := j.writer.Write(output, out); err != nil {
		return res, WrapError(err, ErrFileWrite, "failed to write translated subtitle").
			WithContext("output", output)
	}

	res.OutputPath = output
	res.Captions = total
	res.Duration = time.Since(start)
	emit(Progress{
		Completed: total,
		Total:     total,
		Message:   fmt.Sprintf("Finished %s", name),
		Done:      true,
	})
	fileLog.Info("Wrote %s in %s", output, res.Duration.Round(time.Millisecond))
	return res, nil
}

func classifyReadError(path string, err error) *TransError {
	var decodeErr *subtitle.DecodeError
	switch {
	case errors.Is(err, subtitle.ErrNotExist):
		return WrapError(err, ErrFileNotFound, "subtitle file not found").WithContext("file", path)
	case errors.As(err, &decodeErr):
		return WrapError(err, ErrDecode, "failed to decode subtitle file").WithContext("file", path)
	default:
		return WrapError(err, ErrFileRead, "failed to read subtitle file").WithContext("file", path)
	}
}
