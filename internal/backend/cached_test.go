package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

func setupTestCache(t *testing.T, next translator.Backend) (*Cached, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cached, err := NewCached(next, &redis.Options{Addr: mr.Addr()}, time.Hour, "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cached.Close() })
	return cached, mr
}

func TestCached_HitSkipsBackend(t *testing.T) {
	calls := 0
	next := translator.BackendFunc(func(ctx context.Context, text string, req translator.Request) (string, error) {
		calls++
		return "Hola", nil
	})
	cached, mr := setupTestCache(t, next)
	req := translator.Request{SourceLanguage: "en", TargetLanguage: "es"}

	got, err := cached.Translate(context.Background(), "Hello", req)
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)

	got, err = cached.Translate(context.Background(), "Hello", req)
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
	assert.Equal(t, 1, calls)

	key := cached.key("Hello", req)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestCached_KeyIncludesLanguages(t *testing.T) {
	calls := 0
	next := translator.BackendFunc(func(ctx context.Context, text string, req translator.Request) (string, error) {
		calls++
		return req.TargetLanguage + ":" + text, nil
	})
	cached, _ := setupTestCache(t, next)

	es, _ := cached.Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "es"})
	fr, _ := cached.Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "fr"})
	assert.Equal(t, "es:Hello", es)
	assert.Equal(t, "fr:Hello", fr)
	assert.Equal(t, 2, calls)
}

func TestCached_FailuresAreNotStored(t *testing.T) {
	next := translator.BackendFunc(func(ctx context.Context, text string, req translator.Request) (string, error) {
		return "", errors.New("backend down")
	})
	cached, mr := setupTestCache(t, next)

	_, err := cached.Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "es"})
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCached_RedisOutageFallsThrough(t *testing.T) {
	next := translator.BackendFunc(func(ctx context.Context, text string, req translator.Request) (string, error) {
		return "Hola", nil
	})
	cached, mr := setupTestCache(t, next)
	mr.Close()

	got, err := cached.Translate(context.Background(), "Hello", translator.Request{SourceLanguage: "en", TargetLanguage: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
}

func TestNewCached_Unreachable(t *testing.T) {
	_, err := NewCached(nil, &redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, time.Hour, "")
	assert.Error(t, err)
}

func TestNew_Factory(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{
			Provider:  config.ProviderGoogle,
			GoogleURL: "http://localhost",
			DeepLURL:  "http://localhost",
			DeepLKey:  "k",
			Timeout:   time.Second,
		},
	}

	b, closeFn, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Google{}, b)
	assert.NoError(t, closeFn())

	cfg.Backend.Provider = config.ProviderDeepL
	b, _, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &DeepL{}, b)

	cfg.Backend.Provider = config.ProviderLLM
	_, _, err = New(cfg)
	assert.Error(t, err, "llm provider without api key")

	cfg.Backend.Provider = "babelfish"
	_, _, err = New(cfg)
	assert.Error(t, err)
}

func TestNew_FactoryWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Backend: config.BackendConfig{Provider: config.ProviderGoogle, GoogleURL: "http://localhost", Timeout: time.Second},
		Cache:   config.CacheConfig{RedisAddr: mr.Addr(), TTL: time.Minute, KeyPrefix: "x:"},
	}

	b, closeFn, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, b)
	assert.NoError(t, closeFn())
}

func TestNew_FactoryCacheUnreachable(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Provider: config.ProviderGoogle, GoogleURL: "http://localhost", Timeout: time.Second},
		Cache:   config.CacheConfig{RedisAddr: "127.0.0.1:1", TTL: time.Minute},
	}

	b, closeFn, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Google{}, b)
	assert.NoError(t, closeFn())
}
