package cache

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Jmjcoke/quorum/internal/model"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set("key", []byte("value"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("key")
	if !found || string(val) != "value" {
		t.Errorf("Get = %q, %v; want value, true", val, found)
	}

	if err := c.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("key"); found {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	if err := c.Set("key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("key"); found {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("expected miss after clear")
	}
}

func TestDiskCache(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)

	if err := c.Set("quorum:v1:abc", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("quorum:v1:abc")
	if !found || string(val) != "payload" {
		t.Errorf("Get = %q, %v; want payload, true", val, found)
	}

	if err := c.Delete("quorum:v1:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("quorum:v1:abc"); found {
		t.Error("expected miss after delete")
	}
}

func TestDiskCacheExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)
	if err := c.Set("key", []byte("payload"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("key"); found {
		t.Error("expected expired entry to miss")
	}
	// The expired file is removed on read.
	if _, err := os.Stat(c.path("key")); !os.IsNotExist(err) {
		t.Error("expected expired file to be removed")
	}
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)
	if err := c.Set("key", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := os.WriteFile(c.path("key"), []byte("{garbage"), 0o644); err != nil {
		t.Fatalf("corrupting entry: %v", err)
	}
	if _, found := c.Get("key"); found {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(c.path("key")); !os.IsNotExist(err) {
		t.Error("expected corrupt file to be removed")
	}
}

func TestDiskCachePathPortable(t *testing.T) {
	c := NewDiskCache("/tmp/cache", time.Minute)
	p := c.path("quorum:v1:abc")
	if strings.Contains(p[len("/tmp/cache"):], ":") {
		t.Errorf("path %q still contains ':'", p)
	}
}

func TestLayeredCachePromotion(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	if err := c.Set("key", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Simulate a restart: memory is cold, disk still holds the entry.
	c.memory.Clear()
	val, found := c.Get("key")
	if !found || string(val) != "payload" {
		t.Fatalf("Get after memory clear = %q, %v; want payload, true", val, found)
	}

	// The disk hit was promoted; removing the disk layer must not hurt.
	c.disk.Clear()
	if _, found := c.Get("key"); !found {
		t.Error("expected promoted entry in the memory layer")
	}
}

func TestLayeredCacheDelete(t *testing.T) {
	c := NewLayeredCache(time.Minute, t.TempDir(), time.Minute)
	c.Set("key", []byte("payload"), 0)
	if err := c.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("key"); found {
		t.Error("expected miss after delete")
	}
}

func TestResultKey(t *testing.T) {
	input := []byte(`{"responses": []}`)

	base := ResultKey(input, "majority", "default")
	if !strings.HasPrefix(base, "quorum:v1:") {
		t.Errorf("key %q missing namespace prefix", base)
	}
	if base != ResultKey(input, "majority", "default") {
		t.Error("identical inputs should produce identical keys")
	}
	if base == ResultKey(input, "plurality", "default") {
		t.Error("strategy should be part of the key")
	}
	if base == ResultKey(input, "majority", "fast") {
		t.Error("preset should be part of the key")
	}
	if base == ResultKey([]byte(`{"responses": [1]}`), "majority", "default") {
		t.Error("input bytes should be part of the key")
	}
}

func TestGetSetResult(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	key := ResultKey([]byte("input"), "majority", "default")

	if _, found := GetResult(c, key); found {
		t.Error("expected miss before store")
	}

	result := &model.ConsensusResult{
		ID:             "r1",
		Content:        "Resistor R1 at 100,200.",
		Strategy:       model.VoteMajority,
		AgreementLevel: 0.9,
		Confidence:     0.8,
	}
	if err := SetResult(c, key, result, time.Minute); err != nil {
		t.Fatalf("SetResult failed: %v", err)
	}

	got, found := GetResult(c, key)
	if !found {
		t.Fatal("expected hit after store")
	}
	if got.ID != "r1" || got.Confidence != 0.8 || got.Strategy != model.VoteMajority {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetResultCorruptPayload(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("key", []byte("{not json"), 0)

	if _, found := GetResult(c, "key"); found {
		t.Error("expected corrupt payload to miss")
	}
	// The bad entry is evicted so the next read goes to the source.
	if _, found := c.Get("key"); found {
		t.Error("expected corrupt entry to be deleted")
	}
}
