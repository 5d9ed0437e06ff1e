package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/leadforge/leadforge/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "leadforge.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewStore_EmptyPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHSet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.HSet(ctx, "leadforge:lead:a", map[string]string{"id": "a", "company": "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := s.HGetAll(ctx, "leadforge:lead:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["id"] != "a" || m["company"] != "Acme" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHSet_MergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.HSet(ctx, "k", map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.HSet(ctx, "k", map[string]string{"b": "3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := s.HGetAll(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["a"] != "1" {
		t.Errorf("untouched field changed: %v", m)
	}
	if m["b"] != "3" {
		t.Errorf("updated field not overwritten: %v", m)
	}
}

func TestHGetAll_MissingKey(t *testing.T) {
	s := newTestStore(t)

	m, err := s.HGetAll(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestHSetMulti_And_HGetAllMulti(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "a"}},
		{Key: "k2", Fields: map[string]string{"f": "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.HGetAllMulti(ctx, []string{"k1", "k2", "absent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0]["f"] != "a" || results[1]["f"] != "b" {
		t.Errorf("unexpected results: %v", results)
	}
	if len(results[2]) != 0 {
		t.Errorf("expected empty map for absent key, got %v", results[2])
	}
}

func TestDel_RemovesKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.HSet(ctx, "k", map[string]string{"f": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := s.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected key gone after Del")
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false before write")
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exists, err = s.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true after write")
	}
}

func TestScan_GlobPattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"leadforge:lead:a", "leadforge:lead:b", "leadforge:budget:oracle"} {
		if err := s.HSet(ctx, k, map[string]string{"f": "v"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	keys, err := s.Scan(ctx, "leadforge:lead:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
	for _, k := range keys {
		if k != "leadforge:lead:a" && k != "leadforge:lead:b" {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Get_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestSetWithTTL_Expiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "gone", []byte("v"), -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound for expired key, got %v", err)
	}

	if err := s.SetWithTTL(ctx, "alive", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "alive"); err != nil {
		t.Errorf("expected live key readable, got %v", err)
	}
}

func TestIncrBy_Accumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.IncrBy(ctx, "counter", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5, got %d", n)
	}

	n, err = s.IncrBy(ctx, "counter", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 12 {
		t.Errorf("expected 12, got %d", n)
	}

	data, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		t.Fatalf("counter not parseable: %q", data)
	}
	if got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestExpire_NX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First NX expire sets a far future TTL.
	if err := s.Expire(ctx, "k", time.Hour, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second NX expire must not shorten it.
	if err := s.Expire(ctx, "k", -time.Second, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("NX expire overwrote existing TTL: %v", err)
	}

	// Unconditional expire does shorten it.
	if err := s.Expire(ctx, "k", -time.Second, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after unconditional expire, got %v", err)
	}
}

func TestWaitForReady(t *testing.T) {
	s := newTestStore(t)

	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
