package subtitle

import "golang.org/x/text/language"

// Reader is the interface for reading subtitle files
type Reader interface {
	Read(path string) (*File, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, subtitle *File) error
}

// Caption is one timed entry. Index and Timing are carried verbatim from the
// source and never renumbered or parsed into numeric time.
type Caption struct {
	Index  string `json:"index"`
	Timing string `json:"timing"`
	Text   string `json:"text"`
}

// WithText returns a copy of c carrying text.
func (c Caption) WithText(text string) Caption {
	return Caption{Index: c.Index, Timing: c.Timing, Text: text}
}

// Encoding names the text encoding a file was decoded with.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "iso-8859-1"
)

// File represents subtitle file
type File struct {
	Path     string
	Captions []Caption
	Encoding Encoding
	Language language.Tag
	Format   string // always SRT for now
}
