package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spbe-academy/devops-academy/internal/platform/cache"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

func backends(t *testing.T) map[string]kv.Store {
	t.Helper()
	fs, err := kv.NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return map[string]kv.Store{
		"memory": kv.NewMemoryStore(),
		"file":   fs,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			exerciseStore(t, s)
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", `a\b`, ".hidden"} {
				if err := s.Set(context.Background(), key, []byte("{}")); err == nil {
					t.Errorf("Set(%q) should fail", key)
				}
			}
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := kv.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := kv.SetJSON(ctx, first, "spbe_user", map[string]string{"email": "demo@spbe.academy"}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	second, _ := kv.NewFileStore(dir)
	var got map[string]string
	found, err := kv.GetJSON(ctx, second, "spbe_user", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON() found=%v error=%v", found, err)
	}
	if got["email"] != "demo@spbe.academy" {
		t.Errorf("email = %q", got["email"])
	}

	if _, err := os.Stat(filepath.Join(dir, "spbe_user.json")); err != nil {
		t.Errorf("expected spbe_user.json on disk: %v", err)
	}
}

func TestGetJSON_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemoryStore()
	s.Set(ctx, "spbe_progress", []byte("{not json"))

	var v []string
	if _, err := kv.GetJSON(ctx, s, "spbe_progress", &v); err == nil {
		t.Error("GetJSON() should fail on corrupt document")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("LEARN_TEST_CACHE_URL")
	if testing.Short() || url == "" {
		t.Skip("set LEARN_TEST_CACHE_URL to run against Redis")
	}

	c, err := cache.New(context.Background(), url)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	defer c.Close()
	c.Prefix = "academy-test-" + t.Name()

	exerciseStore(t, kv.NewRedisStore(c))
}

func exerciseStore(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "spbe_progress"); err != nil || found {
		t.Fatalf("Get(missing) found=%v error=%v", found, err)
	}

	if err := s.Set(ctx, "spbe_progress", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "spbe_progress", []byte(`[1,2,3]`)); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	var got []int
	found, err := kv.GetJSON(ctx, s, "spbe_progress", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON() found=%v error=%v", found, err)
	}
	if len(got) != 3 {
		t.Errorf("got %v, want [1 2 3]", got)
	}

	if err := s.Delete(ctx, "spbe_progress"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := s.Get(ctx, "spbe_progress"); found {
		t.Error("key should be gone after Delete()")
	}
	if err := s.Delete(ctx, "spbe_progress"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}
