package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// DefaultCallDelay spaces consecutive backend calls.
const DefaultCallDelay = 50 * time.Millisecond

// ErrEmptyTranslation is returned for a blank backend answer to non-blank input.
var ErrEmptyTranslation = errors.New("backend returned an empty translation")

// Translator translates caption text blocks. It sends the whole block first
// and falls back to line-by-line calls when that fails; lines the backend
// rejects stay untranslated. Translate never returns an error.
type Translator struct {
	backend Backend
	limiter *rate.Limiter
}

type Option func(*Translator)

// WithCallDelay sets the minimum spacing between backend calls. Zero disables pacing.
func WithCallDelay(d time.Duration) Option {
	return func(t *Translator) {
		if d <= 0 {
			t.limiter = nil
			return
		}
		t.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func New(backend Backend, opts ...Option) *Translator {
	t := &Translator{backend: backend}
	WithCallDelay(DefaultCallDelay)(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate returns the translation of text, or as much of it as the backend
// could translate. Blank input is returned without calling the backend.
func (t *Translator) Translate(ctx context.Context, text string, req Request) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	translated, err := t.call(ctx, text, req)
	if err == nil {
		return translated
	}
	log.Debug("Block translation failed, retrying line by line: %v", err)
	metrics.FallbacksTotal.Inc()

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		translatedLine, err := t.call(ctx, line, req)
		if err != nil {
			log.Debug("Line translation failed, keeping original %q: %v", line, err)
			metrics.UntranslatedLinesTotal.Inc()
			continue
		}
		lines[i] = translatedLine
	}
	return strings.Join(lines, "\n")
}

func (t *Translator) call(ctx context.Context, text string, req Request) (out string, err error) {
	if t.backend == nil {
		return "", fmt.Errorf("translation backend not set")
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for backend slot: %w", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
		metrics.ObserveBackendCall(err)
	}()

	out, err = t.backend.Translate(ctx, text, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}
