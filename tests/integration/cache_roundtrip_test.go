package integration_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/finsight-ai/finsight/cache"
	"github.com/finsight-ai/finsight/config"
	"github.com/finsight-ai/finsight/database"
)

func TestCacheRoundTrip(t *testing.T) {
	if os.Getenv("RUN_DB_INTEGRATION_TESTS") != "1" {
		t.Skip("set RUN_DB_INTEGRATION_TESTS=1 to run database connectivity checks")
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		t.Fatalf("redis connection: %v", err)
	}
	defer client.Close()

	c := cache.New(client, time.Minute, nil)

	type payload struct {
		Answer string `json:"answer"`
		Count  int    `json:"count"`
	}

	key := cache.Key("integration", "roundtrip", time.Now().String())
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	var miss payload
	if c.Get(ctx, key, &miss) {
		t.Fatal("expected miss before set")
	}

	want := payload{Answer: "cached answer", Count: 3}
	c.Set(ctx, key, want)

	var got payload
	if !c.Get(ctx, key, &got) {
		t.Fatal("expected hit after set")
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
