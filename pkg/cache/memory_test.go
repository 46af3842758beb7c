package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Sigma  float64 `json:"sigma"`
	}

	in := payload{Symbol: "BTC-USD", Sigma: 0.42}
	if err := mc.Set(ctx, "vol:BTC-USD", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	if err := mc.Get(ctx, "vol:BTC-USD", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip: want %+v, got %+v", in, out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var out string
	if err := mc.Get(context.Background(), "absent", &out); err != ErrCacheMiss {
		t.Fatalf("want ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var out string
	if err := mc.Get(ctx, "k", &out); err != ErrCacheMiss {
		t.Fatalf("expired key must miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expired key must not exist")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mc.Delete(ctx, "a", "missing-is-fine"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out int
	if err := mc.Get(ctx, "a", &out); err != ErrCacheMiss {
		t.Fatalf("deleted key must miss, got %v", err)
	}
}
