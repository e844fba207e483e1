package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/translator"
)

const scenarioInput = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n\n"

var enToEs = translator.Request{SourceLanguage: "en", TargetLanguage: "es"}

// dictionaryTranslator backs a real Translator with a fixed word list.
// Unknown text makes the backend fail.
func dictionaryTranslator(dict map[string]string) *translator.Translator {
	backend := translator.BackendFunc(func(ctx context.Context, text string, req translator.Request) (string, error) {
		if out, ok := dict[text]; ok {
			return out, nil
		}
		return "", errors.New("unknown text")
	})
	return translator.New(backend, translator.WithCallDelay(0))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// numberedSRT builds n captions with texts "Line 1".."Line n".
func numberedSRT(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "%d\n00:00:01,000 --> 00:00:02,000\nLine %d\n\n", i, i)
	}
	return sb.String()
}
