// Package backend holds the translation services a Translator can call.
package backend

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// New builds the configured provider, wrapped in the Redis cache when one is
// configured and reachable. The returned close func is never nil.
func New(cfg *config.Config) (translator.Backend, func() error, error) {
	var base translator.Backend
	switch cfg.Backend.Provider {
	case config.ProviderGoogle, "":
		base = NewGoogle(cfg.Backend.GoogleURL, cfg.Backend.Timeout)
	case config.ProviderDeepL:
		base = NewDeepL(cfg.Backend.DeepLURL, cfg.Backend.DeepLKey, cfg.Backend.Timeout)
	case config.ProviderLLM:
		llmBackend, err := NewLLM(&cfg.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm backend: %w", err)
		}
		base = llmBackend
	default:
		return nil, nil, fmt.Errorf("unknown translation provider %q", cfg.Backend.Provider)
	}

	noop := func() error { return nil }
	if !cfg.Cache.Enabled() {
		return base, noop, nil
	}

	cached, err := NewCached(base, &redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	}, cfg.Cache.TTL, cfg.Cache.KeyPrefix)
	if err != nil {
		log.Warn("Translation cache disabled: %v", err)
		return base, noop, nil
	}
	log.Info("Translation cache enabled at %s", cfg.Cache.RedisAddr)
	return cached, cached.Close, nil
}
