package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/srt-translator/internal/llm"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

const llmSystemPrompt = `You are a professional subtitle translator.
Translate the user's subtitle text %s into %s.
Keep exactly the same number of lines and the same line breaks.
Keep formatting tags such as <i> and {\an8} unchanged.
Reply with the translated text only, without quotes, notes or explanations.`

// Chatter is the part of llm.Client the LLM backend needs.
type Chatter interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// LLM translates with an OpenAI-compatible chat model.
type LLM struct {
	client Chatter
}

func NewLLM(config *llm.Config) (*LLM, error) {
	client, err := llm.NewClient(config)
	if err != nil {
		return nil, err
	}
	return &LLM{client: client}, nil
}

func NewLLMWithClient(client Chatter) *LLM {
	return &LLM{client: client}
}

func (l *LLM) Name() string {
	return "llm"
}

func (l *LLM) Translate(ctx context.Context, text string, req translator.Request) (string, error) {
	from := "from " + translator.LanguageName(req.SourceLanguage)
	if req.IsAutoDetect() {
		from = "from its original language"
	}
	systemPrompt := fmt.Sprintf(llmSystemPrompt, from, translator.LanguageName(req.TargetLanguage))

	out, err := l.client.SimpleChat(ctx, text, systemPrompt)
	if err != nil {
		return "", err
	}
	return cleanLLMOutput(out), nil
}

// cleanLLMOutput strips code fences and surrounding whitespace models add.
func cleanLLMOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
