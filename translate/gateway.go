package translate

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/crosstalk-chat/crosstalk/globals"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
	defaultCacheSize = 1024
)

// Translator is the opaque remote translation capability the gateway wraps.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type cacheKey struct {
	SourceLang string
	TargetLang string
	Text       string
}

// Gateway wraps a Translator with bounded retry, linearly increasing backoff
// and a small result cache. It never fails the relay path: when all attempts
// are exhausted the caller receives a visible placeholder carrying the last
// error instead of an error return.
type Gateway struct {
	translator Translator
	attempts   int
	baseDelay  time.Duration
	cache      *lru.ARCCache
}

func NewGateway(t Translator, attempts int, baseDelay time.Duration, cacheSize int) *Gateway {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	// NewARC only fails on a non-positive size
	cache, _ := lru.NewARC(cacheSize)
	return &Gateway{
		translator: t,
		attempts:   attempts,
		baseDelay:  baseDelay,
		cache:      cache,
	}
}

// Translate returns the translation of text, or a placeholder when every
// attempt failed. Safe for concurrent use; the only shared state is the
// cache.
func (g *Gateway) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	key := cacheKey{SourceLang: sourceLang, TargetLang: targetLang, Text: text}
	if v, ok := g.cache.Get(key); ok {
		return v.(string)
	}
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		translated, err := g.translator.Translate(ctx, text, sourceLang, targetLang)
		if err == nil {
			g.cache.Add(key, translated)
			return translated
		}
		lastErr = err
		globals.AppLogger.Warn("translation attempt failed", "attempt", attempt, "source", sourceLang, "target", targetLang, "error", err)
		if attempt == g.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * g.baseDelay):
		case <-ctx.Done():
			return placeholder(ctx.Err())
		}
	}
	return placeholder(lastErr)
}

func placeholder(err error) string {
	return fmt.Sprintf("[translation unavailable: %s]", err)
}
