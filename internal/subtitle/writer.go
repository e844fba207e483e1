package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultWriter is the default subtitle file writer
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

// Write serializes subtitle to path as UTF-8, replacing any existing file.
func (w *DefaultWriter) Write(path string, subtitle *File) error {
	if subtitle == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := Encode(writer, subtitle.Captions); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return file.Close()
}

// Encode writes each caption as index, timing, text and a blank line.
func Encode(w io.Writer, captions []Caption) error {
	for _, c := range captions {
		if _, err := fmt.Fprintf(w, "%s\n%s\n%s\n\n", c.Index, c.Timing, c.Text); err != nil {
			return err
		}
	}
	return nil
}

// Format returns the serialized form of captions.
func Format(captions []Caption) string {
	var sb strings.Builder
	_ = Encode(&sb, captions)
	return sb.String()
}
