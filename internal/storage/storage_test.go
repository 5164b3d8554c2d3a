package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemory_GetSetRemove(t *testing.T) {
	testBackend(t, NewMemory())
}

func TestFile_GetSetRemove(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	testBackend(t, f)
}

func testBackend(t *testing.T, st Storage) {
	t.Helper()
	ctx := context.Background()

	if _, err := st.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty storage error = %v, want ErrNotFound", err)
	}

	if err := st.Set(ctx, KeyToken, "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := st.Get(ctx, KeyToken)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "abc" {
		t.Errorf("Get() = %q, want %q", got, "abc")
	}

	if err := st.Remove(ctx, KeyToken); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := st.Remove(ctx, KeyToken); err != nil {
		t.Fatalf("Remove() of missing key error = %v", err)
	}
	if _, err := st.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrNotFound", err)
	}
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := f.Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() reopen error = %v", err)
	}
	got, err := reopened.Get(ctx, KeyTheme)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "dark" {
		t.Errorf("Get() = %q, want %q", got, "dark")
	}
}

func TestOpenFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := OpenFile(path); err == nil {
		t.Error("OpenFile() should fail on a corrupt document")
	}
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	var v struct{ Skin string }
	ok, err := LoadJSON(ctx, st, KeyUISettings, &v)
	if ok || err != nil {
		t.Fatalf("LoadJSON() on missing key = (%v, %v), want (false, nil)", ok, err)
	}

	if err := SaveJSON(ctx, st, KeyUISettings, map[string]string{"Skin": "rose"}); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}
	ok, err = LoadJSON(ctx, st, KeyUISettings, &v)
	if !ok || err != nil {
		t.Fatalf("LoadJSON() = (%v, %v), want (true, nil)", ok, err)
	}
	if v.Skin != "rose" {
		t.Errorf("Skin = %q, want %q", v.Skin, "rose")
	}

	_ = st.Set(ctx, KeyUser, "{broken")
	ok, err = LoadJSON(ctx, st, KeyUser, &v)
	if ok || err == nil {
		t.Errorf("LoadJSON() on broken value = (%v, %v), want (false, error)", ok, err)
	}
}

func TestMemory_Snapshot(t *testing.T) {
	st := NewMemory()
	_ = st.Set(context.Background(), "a", "1")

	snap := st.Snapshot()
	snap["a"] = "changed"

	if got, _ := st.Get(context.Background(), "a"); got != "1" {
		t.Errorf("Snapshot() leaked a live map, Get() = %q", got)
	}
}

func TestConnectRedis_Unreachable(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{
		Addr:    "127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	if err == nil {
		t.Error("ConnectRedis() to a closed port should fail")
	}
}
