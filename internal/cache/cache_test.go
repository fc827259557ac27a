package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidinfra/docvault/internal/config"
)

type cachedNote struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(config.CacheConfig{Enabled: true, TTL: time.Minute})

	c.Set(ctx, GenerateKey(PrefixNote, "a"), []byte("1"), 0)
	c.Set(ctx, GenerateKey(PrefixNote, "b"), []byte("2"), time.Hour)
	c.Set(ctx, GenerateKey(PrefixNoteTags, "all"), []byte("3"), 0)

	v, ok := c.Get(ctx, GenerateKey(PrefixNote, "a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	c.DeleteByPrefix(ctx, PrefixNote)
	_, ok = c.Get(ctx, GenerateKey(PrefixNote, "a"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixNote, "b"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixNoteTags, "all"))
	assert.True(t, ok)

	c.Flush(ctx)
	_, ok = c.Get(ctx, GenerateKey(PrefixNoteTags, "all"))
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
}

func TestDisabledCacheStoresNothing(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(config.CacheConfig{Enabled: false})

	c.Set(ctx, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestObjectHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(config.CacheConfig{Enabled: true})

	SetObject(ctx, c, "note", cachedNote{Title: "t", Tags: []string{"x"}}, 0)
	got, ok := GetObject[cachedNote](ctx, c, "note")
	require.True(t, ok)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, []string{"x"}, got.Tags)

	c.Set(ctx, "broken", []byte("{"), 0)
	_, ok = GetObject[cachedNote](ctx, c, "broken")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "broken")
	assert.False(t, ok, "undecodable entries are evicted")
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "note:v1::abc", GenerateKey(PrefixNote, "abc"))
	assert.Equal(t, "note_tags:v1::true:10", GenerateKey(PrefixNoteTags, true, 10))
}
