package translator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoDetect asks the backend to detect the source language.
const AutoDetect = "auto"

// Request is the language pair every caption of a job is translated under.
type Request struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// NewRequest validates source and target. Source may be AutoDetect.
func NewRequest(source, target string) (Request, error) {
	req := Request{
		SourceLanguage: strings.TrimSpace(source),
		TargetLanguage: strings.TrimSpace(target),
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = AutoDetect
	}
	return req, req.Validate()
}

func (r Request) Validate() error {
	if !r.IsAutoDetect() {
		if _, err := language.Parse(r.SourceLanguage); err != nil {
			return fmt.Errorf("invalid source language %q: %w", r.SourceLanguage, err)
		}
	}
	if r.TargetLanguage == "" {
		return fmt.Errorf("target language is required")
	}
	if strings.EqualFold(r.TargetLanguage, AutoDetect) {
		return fmt.Errorf("target language cannot be %q", AutoDetect)
	}
	if _, err := language.Parse(r.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target language %q: %w", r.TargetLanguage, err)
	}
	return nil
}

func (r Request) IsAutoDetect() bool {
	return strings.EqualFold(r.SourceLanguage, AutoDetect)
}

func (r Request) String() string {
	return r.SourceLanguage + "->" + r.TargetLanguage
}

// Backend is the remote translation capability. It may fail for any reason.
type Backend interface {
	Translate(ctx context.Context, text string, req Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, text string, req Request) (string, error)

func (f BackendFunc) Translate(ctx context.Context, text string, req Request) (string, error) {
	return f(ctx, text, req)
}

// Language is a selectable language code with its English display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedCodes = []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko"}

// SupportedLanguages lists the languages offered for selection. The first
// entry is AutoDetect, which is only valid as a source.
func SupportedLanguages() []Language {
	ret := make([]Language, 0, len(supportedCodes)+1)
	ret = append(ret, Language{Code: AutoDetect, Name: "Automatic detection"})
	namer := display.English.Languages()
	for _, code := range supportedCodes {
		ret = append(ret, Language{Code: code, Name: namer.Name(language.MustParse(code))})
	}
	return ret
}

// LanguageName returns the English display name for code, or code itself.
func LanguageName(code string) string {
	if strings.EqualFold(code, AutoDetect) {
		return "Automatic detection"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return display.English.Languages().Name(tag)
}
