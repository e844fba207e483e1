package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translator/internal/translator"
)

// DeepL translates through the DeepL v2 REST API.
type DeepL struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewDeepL(baseURL, apiKey string, timeout time.Duration) *DeepL {
	return &DeepL{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (d *DeepL) Name() string {
	return "deepl"
}

func (d *DeepL) Translate(ctx context.Context, text string, req translator.Request) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("DeepL API key not configured")
	}

	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", deeplTargetCode(req.TargetLanguage))
	if !req.IsAutoDetect() && req.SourceLanguage != "" {
		form.Set("source_lang", deeplSourceCode(req.SourceLanguage))
	}
	form.Set("preserve_formatting", "1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var deeplResp struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("DeepL returned no translations")
	}
	return deeplResp.Translations[0].Text, nil
}

// deeplSourceCode converts a BCP 47 tag to a DeepL source code. Source codes
// carry no regional variant.
func deeplSourceCode(code string) string {
	base, _, _ := strings.Cut(code, "-")
	return strings.ToUpper(base)
}

// deeplTargetCode converts a BCP 47 tag to a DeepL target code.
func deeplTargetCode(code string) string {
	mapping := map[string]string{
		"en": "EN-US",
		"pt": "PT-BR",
		"zh": "ZH",
	}
	if mapped, ok := mapping[strings.ToLower(code)]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
