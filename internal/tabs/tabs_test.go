package tabs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jpalmerr/halolight/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, st storage.Storage) *Store {
	t.Helper()
	if st == nil {
		st = storage.NewMemory()
	}
	return New(context.Background(), st, WithLogger(testLogger()))
}

func countPath(st State, path string) int {
	n := 0
	for _, tab := range st.Tabs {
		if tab.Path == path {
			n++
		}
	}
	return n
}

func TestNew_DefaultState(t *testing.T) {
	s := newTestStore(t, nil)

	got := s.Get()
	if len(got.Tabs) != 1 || got.Tabs[0].ID != HomeID || got.ActiveTabID != HomeID {
		t.Errorf("Get() = %+v, want home only", got)
	}
	if got.Tabs[0].IsClosable() {
		t.Error("home tab should be pinned")
	}
}

func TestAdd_SamePathTwice(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	users := Tab{ID: "u1", Title: "Users", Path: "/users"}

	s.Add(ctx, users)
	if got := s.Get(); got.ActiveTabID != "u1" {
		t.Errorf("active after first add = %q, want u1", got.ActiveTabID)
	}

	s.Add(ctx, users)
	got := s.Get()
	if n := countPath(got, "/users"); n != 1 {
		t.Errorf("/users tabs = %d, want 1", n)
	}
	if got.ActiveTabID != "u1" {
		t.Errorf("active after second add = %q, want u1", got.ActiveTabID)
	}
}

func TestAdd_ExistingPathActivatesExistingTab(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	s.Add(ctx, Tab{ID: "users", Title: "Users", Path: "/users"})
	s.Add(ctx, Tab{ID: "files", Title: "Files", Path: "/files"})
	s.Add(ctx, Tab{ID: "other-id", Title: "Users", Path: "/users"})

	got := s.Get()
	if got.ActiveTabID != "users" {
		t.Errorf("active = %q, want users", got.ActiveTabID)
	}
	if len(got.Tabs) != 3 {
		t.Errorf("tabs = %d, want 3", len(got.Tabs))
	}
}

func TestClose_PinnedIsNoop(t *testing.T) {
	s := newTestStore(t, nil)

	notified := 0
	unsubscribe := s.Subscribe(func(State) { notified++ })
	defer unsubscribe()

	s.Close(context.Background(), HomeID)
	s.Close(context.Background(), "does-not-exist")

	if notified != 0 {
		t.Errorf("notified %d times, want 0", notified)
	}
	if len(s.Get().Tabs) != 1 {
		t.Error("home tab was removed")
	}
}

func TestClose_ActiveFallsBackToLast(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	s.Add(ctx, Tab{ID: "a", Title: "A", Path: "/a"})
	s.Add(ctx, Tab{ID: "b", Title: "B", Path: "/b"})
	s.SetActive(ctx, "a")

	s.Close(ctx, "a")
	if got := s.Get().ActiveTabID; got != "b" {
		t.Errorf("active = %q, want b", got)
	}

	s.Close(ctx, "b")
	if got := s.Get().ActiveTabID; got != HomeID {
		t.Errorf("active = %q, want home", got)
	}
}

func TestClose_InactiveKeepsActive(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	s.Add(ctx, Tab{ID: "a", Title: "A", Path: "/a"})
	s.Add(ctx, Tab{ID: "b", Title: "B", Path: "/b"})

	s.Close(ctx, "a")
	if got := s.Get().ActiveTabID; got != "b" {
		t.Errorf("active = %q, want b", got)
	}
}

func TestCloseOthersAndCloseAll(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		s.Add(ctx, Tab{ID: id, Title: id, Path: "/" + id})
	}

	s.CloseOthers(ctx, "b")
	got := s.Get()
	if len(got.Tabs) != 2 || got.ActiveTabID != "b" {
		t.Errorf("after CloseOthers = %+v", got)
	}

	s.CloseAll(ctx)
	got = s.Get()
	if len(got.Tabs) != 1 || got.ActiveTabID != HomeID {
		t.Errorf("after CloseAll = %+v", got)
	}
}

func TestSetActive_UnknownIgnored(t *testing.T) {
	s := newTestStore(t, nil)

	s.SetActive(context.Background(), "ghost")
	if got := s.Get().ActiveTabID; got != HomeID {
		t.Errorf("active = %q, want home", got)
	}
}

func TestSetActiveByPath(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	s.Add(ctx, Tab{ID: "a", Title: "A", Path: "/a"})

	s.SetActiveByPath(ctx, "/dashboard")
	if got := s.Get().ActiveTabID; got != HomeID {
		t.Errorf("active = %q, want home", got)
	}
	s.SetActiveByPath(ctx, "/nowhere")
	if got := s.Get().ActiveTabID; got != HomeID {
		t.Errorf("active = %q after unknown path", got)
	}
}

func TestPersistence(t *testing.T) {
	st := storage.NewMemory()
	ctx := context.Background()

	first := newTestStore(t, st)
	first.Add(ctx, Tab{ID: "files", Title: "Files", Path: "/files"})

	second := newTestStore(t, st)
	got := second.Get()
	if len(got.Tabs) != 2 || got.ActiveTabID != "files" {
		t.Errorf("restored = %+v", got)
	}
	if !got.Tabs[1].IsClosable() || got.Tabs[0].IsClosable() {
		t.Error("closable flags not restored")
	}
}

func TestPersistence_InvalidJSON(t *testing.T) {
	st := storage.NewMemory()
	_ = st.Set(context.Background(), storage.KeyTabs, "[[[")

	s := newTestStore(t, st)
	if got := s.Get(); len(got.Tabs) != 1 || got.ActiveTabID != HomeID {
		t.Errorf("Get() = %+v, want default", got)
	}
}
