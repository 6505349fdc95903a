package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRevocationSet_MarkAndCheck(t *testing.T) {
	set := NewMemoryRevocationSet(time.Hour)
	defer set.Close()
	ctx := context.Background()

	revoked, err := set.IsRevoked(ctx, "token-a")
	if err != nil || revoked {
		t.Fatalf("IsRevoked before mark = %v, %v; want false", revoked, err)
	}

	if err := set.Mark(ctx, "token-a", time.Hour); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	if revoked, _ := set.IsRevoked(ctx, "token-a"); !revoked {
		t.Error("token-a should be revoked")
	}
	if revoked, _ := set.IsRevoked(ctx, "token-b"); revoked {
		t.Error("token-b should not be revoked")
	}
}

func TestMemoryRevocationSet_EntriesExpire(t *testing.T) {
	set := NewMemoryRevocationSet(10 * time.Millisecond)
	defer set.Close()
	ctx := context.Background()

	if err := set.Mark(ctx, "short", 20*time.Millisecond); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if revoked, _ := set.IsRevoked(ctx, "short"); revoked {
		t.Error("entry should have expired")
	}
	if n := set.Len(); n != 0 {
		t.Errorf("Len = %d, want 0 after sweep", n)
	}
}

func TestMemoryRevocationSet_RejectsEmptyToken(t *testing.T) {
	set := NewMemoryRevocationSet(time.Hour)
	defer set.Close()

	if err := set.Mark(context.Background(), "", time.Hour); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestMemoryRevocationSet_CloseIsIdempotent(t *testing.T) {
	set := NewMemoryRevocationSet(time.Hour)
	set.Close()
	set.Close()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisRevocationSet) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisRevocationSet(client)
}

func TestRedisRevocationSet_MarkAndCheck(t *testing.T) {
	mr, set := newTestRedis(t)
	ctx := context.Background()

	if err := set.Mark(ctx, "token-a", DefaultRevocationTTL); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	revoked, err := set.IsRevoked(ctx, "token-a")
	if err != nil || !revoked {
		t.Fatalf("IsRevoked = %v, %v; want true", revoked, err)
	}
	if revoked, _ := set.IsRevoked(ctx, "token-b"); revoked {
		t.Error("token-b should not be revoked")
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v, want one entry", keys)
	}
	if !strings.HasPrefix(keys[0], RedisKeyPrefix) {
		t.Errorf("key %q missing prefix", keys[0])
	}
	if strings.Contains(keys[0], "token-a") {
		t.Error("raw token must not be stored as key")
	}
	if ttl := mr.TTL(keys[0]); ttl != DefaultRevocationTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultRevocationTTL)
	}
}

func TestRedisRevocationSet_Expiry(t *testing.T) {
	mr, set := newTestRedis(t)
	ctx := context.Background()

	if err := set.Mark(ctx, "token-a", time.Minute); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if revoked, _ := set.IsRevoked(ctx, "token-a"); revoked {
		t.Error("entry should have expired")
	}
}

func TestRedisRevocationSet_ConnectionError(t *testing.T) {
	mr, set := newTestRedis(t)
	mr.Close()

	if _, err := set.IsRevoked(context.Background(), "token-a"); err == nil {
		t.Error("expected error when redis is down")
	}
}
