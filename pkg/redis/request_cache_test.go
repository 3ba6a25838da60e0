package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type cachedView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestCacheSaveLoadInvalidate(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	defer srv.Close()

	cli := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	SetClient(cli)
	defer cli.Close()

	cache := NewCache("payment_request:", time.Minute)
	ctx := context.Background()

	err = cache.Save(ctx, "req-1", &cachedView{ID: "req-1", Status: "pending"})
	assert.NoError(t, err)

	var got cachedView
	assert.NoError(t, cache.Load(ctx, "req-1", &got))
	assert.Equal(t, "pending", got.Status)

	assert.NoError(t, cache.Invalidate(ctx, "req-1"))
	assert.ErrorIs(t, cache.Load(ctx, "req-1", &got), ErrCacheMiss)
}

func TestCacheLoadExpired(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	defer srv.Close()

	cli := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	SetClient(cli)
	defer cli.Close()

	cache := NewCache("payment_request:", 10*time.Second)
	ctx := context.Background()

	assert.NoError(t, cache.Save(ctx, "req-2", &cachedView{ID: "req-2", Status: "pending"}))
	srv.FastForward(time.Minute)

	var got cachedView
	assert.ErrorIs(t, cache.Load(ctx, "req-2", &got), ErrCacheMiss)
}

func TestCacheLoadInvalidJSON(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	defer srv.Close()

	cli := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	SetClient(cli)
	defer cli.Close()

	cache := NewCache("payment_request:", time.Minute)
	ctx := context.Background()

	assert.NoError(t, Set(ctx, "payment_request:req-3", "not-json", time.Minute))

	var got cachedView
	assert.Error(t, cache.Load(ctx, "req-3", &got))
}

func TestCacheSaveUnmarshalableValue(t *testing.T) {
	cache := NewCache("payment_request:", time.Minute)
	err := cache.Save(context.Background(), "bad", make(chan int))
	assert.Error(t, err)
}

func TestCacheWithUnreachableRedis(t *testing.T) {
	cli := goredis.NewClient(&goredis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
	})
	SetClient(cli)
	defer cli.Close()

	cache := NewCache("payment_request:", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.Error(t, cache.Save(ctx, "req-x", &cachedView{ID: "req-x"}))

	var got cachedView
	err := cache.Load(ctx, "req-x", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, cache.Invalidate(ctx, "req-x"))
}

func TestCache_OperationHooks(t *testing.T) {
	cache := NewCache("payment_request:", time.Minute)

	origSet := setCacheValue
	origGet := getCacheValue
	origDel := delCacheValue
	t.Cleanup(func() {
		setCacheValue = origSet
		getCacheValue = origGet
		delCacheValue = origDel
	})

	var setKey, getKey, delKey string
	setCacheValue = func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
		setKey = key
		return nil
	}
	getCacheValue = func(ctx context.Context, key string) (string, error) {
		getKey = key
		return "", errors.New("boom")
	}
	delCacheValue = func(ctx context.Context, key string) error {
		delKey = key
		return nil
	}

	ctx := context.Background()
	assert.NoError(t, cache.Save(ctx, "id-1", &cachedView{}))
	assert.Equal(t, "payment_request:id-1", setKey)

	var got cachedView
	assert.Error(t, cache.Load(ctx, "id-1", &got))
	assert.Equal(t, "payment_request:id-1", getKey)

	assert.NoError(t, cache.Invalidate(ctx, "id-1"))
	assert.Equal(t, "payment_request:id-1", delKey)
}
