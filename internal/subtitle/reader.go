package subtitle

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	indexLine  = regexp.MustCompile(`^(\d+)\s*$`)
	timingLine = regexp.MustCompile(`^([\d:,]+ --> [\d:,]+)\s*$`)
)

// ErrNotExist is returned by Read when the subtitle file is missing.
var ErrNotExist = errors.New("subtitle file does not exist")

// DefaultReader is the default subtitle file reader
type DefaultReader struct{}

// NewReader creates a new subtitle file reader
func NewReader() Reader {
	return &DefaultReader{}
}

// Read loads, decodes and parses the file at path.
func (r *DefaultReader) Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return ReadSRTBytes(data, path)
}

// ReadSRTBytes decodes and parses an in-memory subtitle file.
func ReadSRTBytes(data []byte, path string) (*File, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &File{
		Path:     path,
		Captions: Parse(text),
		Encoding: enc,
		Format:   "SRT",
	}, nil
}

// DecodeError reports file bytes that no supported encoding accepts.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Parse scans text top to bottom for caption blocks: an index line, a timing
// line, then text up to a blank line followed by the next index line or the
// end of input. Blank lines inside the text are kept; the block as a whole is
// trimmed. Fragments that do not fit the grammar are skipped silently.
func Parse(text string) []Caption {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(normalizeNewlines(text), "\n")
	captions := make([]Caption, 0)

	for i := 0; i < len(lines); {
		index, ok := matchIndex(lines[i])
		if !ok || i+1 >= len(lines) {
			i++
			continue
		}
		timing, ok := matchTiming(lines[i+1])
		if !ok {
			i++
			continue
		}

		start := i + 2
		end := blockEnd(lines, start)
		captions = append(captions, Caption{
			Index:  index,
			Timing: timing,
			Text:   strings.TrimSpace(strings.Join(lines[min(start, end):end], "\n")),
		})
		// the terminating blank line is consumed; the next index line is not
		i = end + 1
	}

	return captions
}

// blockEnd returns the position of the blank line that closes the block
// starting at start, or len(lines) when the block runs to the end of input.
func blockEnd(lines []string, start int) int {
	for k := start; k < len(lines); k++ {
		if strings.TrimSpace(lines[k]) != "" {
			continue
		}
		if k+1 < len(lines) {
			if _, ok := matchIndex(lines[k+1]); ok {
				return k
			}
		}
	}
	return len(lines)
}

func matchIndex(line string) (string, bool) {
	m := indexLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func matchTiming(line string) (string, bool) {
	m := timingLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
