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
	"unicode/utf8"

	"github.com/MimeLyc/srt-translator/internal/translator"
)

// Google calls the public translate_a/single web endpoint.
type Google struct {
	baseURL    string
	httpClient *http.Client
}

func NewGoogle(baseURL string, timeout time.Duration) *Google {
	return &Google{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) Translate(ctx context.Context, text string, req translator.Request) (string, error) {
	form := url.Values{}
	form.Set("client", "gtx")
	form.Set("sl", googleLangCode(req.SourceLanguage))
	form.Set("tl", googleLangCode(req.TargetLanguage))
	form.Set("dt", "t")
	form.Set("q", text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/translate_a/single",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("google translate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse joins the translated segments of a response shaped like
// [[["Hola","Hello",null,null,1],["mundo","world",...]],null,"en",...].
func parseGoogleResponse(body []byte) (string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(root) == 0 {
		return "", fmt.Errorf("parse response: empty document")
	}

	var segments [][]any
	if err := json.Unmarshal(root[0], &segments); err != nil {
		return "", fmt.Errorf("parse response segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no translated segments in response")
	}
	return sb.String(), nil
}

func googleLangCode(code string) string {
	if code == "" || strings.EqualFold(code, translator.AutoDetect) {
		return "auto"
	}
	return code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
