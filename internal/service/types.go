package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translator/pkg/file"
)

// Progress reports one file's caption progress. Completed never decreases
// within a run. Done is set only on the final event of a successful run.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
	Done      bool   `json:"done"`
}

// Fraction is Completed/Total. A file without captions counts as 0 until
// its final event and 1 after it.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		if p.Done {
			return 1
		}
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

type ProgressFunc func(Progress)

// BatchProgress is a file event placed within its batch.
type BatchProgress struct {
	Progress
	Overall    float64 `json:"overall"`
	FileIndex  int     `json:"file_index"` // 1-based
	TotalFiles int     `json:"total_files"`
	FileName   string  `json:"file_name"`
}

type BatchProgressFunc func(BatchProgress)

// JobResult is the outcome for one input path.
type JobResult struct {
	InputPath        string        `json:"input_path"`
	OutputPath       string        `json:"output_path,omitempty"`
	Captions         int           `json:"captions"`
	DetectedLanguage string        `json:"detected_language,omitempty"`
	Duration         time.Duration `json:"duration"`
	Error            string        `json:"error,omitempty"`
	Err              error         `json:"-"`
}

func (r JobResult) OK() bool {
	return r.Error == "" && r.Err == nil
}

func (r *JobResult) fail(err error) {
	r.OutputPath = ""
	r.Err = err
	r.Error = err.Error()
}

// BatchResult holds one JobResult per input path in submission order.
type BatchResult struct {
	Results []JobResult `json:"results"`
}

func (b *BatchResult) Succeeded() []JobResult {
	return b.filter(true)
}

func (b *BatchResult) Failed() []JobResult {
	return b.filter(false)
}

func (b *BatchResult) HasFailures() bool {
	return len(b.Failed()) > 0
}

func (b *BatchResult) filter(ok bool) []JobResult {
	ret := make([]JobResult, 0, len(b.Results))
	for _, r := range b.Results {
		if r.OK() == ok {
			ret = append(ret, r)
		}
	}
	return ret
}

// Summary lists succeeded and failed files, naming every failed file.
func (b *BatchResult) Summary() string {
	var sb strings.Builder
	succeeded, failed := b.Succeeded(), b.Failed()
	fmt.Fprintf(&sb, "%d of %d files translated", len(succeeded), len(b.Results))
	for _, r := range succeeded {
		fmt.Fprintf(&sb, "\n  ok     %s -> %s", r.InputPath, r.OutputPath)
	}
	for _, r := range failed {
		fmt.Fprintf(&sb, "\n  failed %s: %s", r.InputPath, r.Error)
	}
	return sb.String()
}

// NamingPolicy derives an output path from an input path.
type NamingPolicy interface {
	OutputPath(input string) string
	// IsOutput reports whether path looks like something this policy produced.
	IsOutput(path string) bool
}

// SuffixNaming writes name.srt to name<Suffix>.srt.
type SuffixNaming struct {
	Suffix string
}

func (n SuffixNaming) OutputPath(input string) string {
	return file.InsertSuffix(input, n.Suffix)
}

func (n SuffixNaming) IsOutput(path string) bool {
	return file.HasSuffixBeforeExt(path, n.Suffix)
}

// LanguageInfixNaming writes name.srt to name.<Tag>.srt.
type LanguageInfixNaming struct {
	Tag string
}

func (n LanguageInfixNaming) OutputPath(input string) string {
	return file.InsertInfix(input, n.Tag)
}

func (n LanguageInfixNaming) IsOutput(path string) bool {
	return file.HasSuffixBeforeExt(path, "."+strings.Trim(n.Tag, "."))
}

const (
	DefaultSuffix        = "_translated"
	DefaultLanguageInfix = "esp"
)

// NewNamingPolicy maps a policy name ("suffix" or "language") to a NamingPolicy.
func NewNamingPolicy(kind, suffix, infix string) (NamingPolicy, error) {
	switch kind {
	case "", "suffix":
		if suffix == "" {
			suffix = DefaultSuffix
		}
		return SuffixNaming{Suffix: suffix}, nil
	case "language":
		if infix == "" {
			infix = DefaultLanguageInfix
		}
		return LanguageInfixNaming{Tag: infix}, nil
	default:
		return nil, NewError(ErrConfig, fmt.Sprintf("unknown naming policy %q", kind))
	}
}
