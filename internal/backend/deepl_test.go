package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/translator"
)

func TestDeepL_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Good morning", r.PostForm.Get("text"))
		assert.Equal(t, "PT-BR", r.PostForm.Get("target_lang"))
		assert.Equal(t, "EN", r.PostForm.Get("source_lang"))
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Bom dia"}]}`))
	}))
	defer server.Close()

	d := NewDeepL(server.URL, "secret", time.Second)
	got, err := d.Translate(context.Background(), "Good morning", translator.Request{SourceLanguage: "en-GB", TargetLanguage: "pt"})
	require.NoError(t, err)
	assert.Equal(t, "Bom dia", got)
}

func TestDeepL_AutoOmitsSourceLang(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["source_lang"]
		assert.False(t, present)
		assert.Equal(t, "ES", r.PostForm.Get("target_lang"))
		_, _ = w.Write([]byte(`{"translations":[{"text":"Hola"}]}`))
	}))
	defer server.Close()

	d := NewDeepL(server.URL, "secret", time.Second)
	got, err := d.Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "auto", TargetLanguage: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
}

func TestDeepL_Errors(t *testing.T) {
	_, err := NewDeepL("http://unused", "", time.Second).
		Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "es"})
	assert.ErrorContains(t, err, "API key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(456)
		_, _ = w.Write([]byte(`{"message":"Quota exceeded"}`))
	}))
	defer server.Close()

	_, err = NewDeepL(server.URL, "secret", time.Second).
		Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "es"})
	assert.ErrorContains(t, err, "status 456")
}

func TestDeepLCodes(t *testing.T) {
	assert.Equal(t, "EN-US", deeplTargetCode("en"))
	assert.Equal(t, "DE", deeplTargetCode("de"))
	assert.Equal(t, "PT", deeplSourceCode("pt-BR"))
}
