package theme

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/halolight/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_FollowsSystemPreference(t *testing.T) {
	tests := []struct {
		name        string
		prefersDark bool
		want        State
	}{
		{"light system", false, State{Theme: Light, IsDark: false}},
		{"dark system", true, State{Theme: Dark, IsDark: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(context.Background(), storage.NewMemory(),
				WithLogger(testLogger()), WithSystemPreference(tt.prefersDark))
			if got := s.Get(); got != tt.want {
				t.Errorf("Get() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNew_PersistedThemeWins(t *testing.T) {
	st := storage.NewMemory()
	_ = st.Set(context.Background(), storage.KeyTheme, "dark")

	s := New(context.Background(), st, WithLogger(testLogger()))
	if got := s.Get(); got.Theme != Dark || !got.IsDark {
		t.Errorf("Get() = %+v, want dark", got)
	}
}

func TestNew_IgnoresGarbage(t *testing.T) {
	st := storage.NewMemory()
	_ = st.Set(context.Background(), storage.KeyTheme, "purple")

	s := New(context.Background(), st, WithLogger(testLogger()))
	if got := s.Get(); got.Theme != Light {
		t.Errorf("Theme = %q, want light", got.Theme)
	}
}

func TestSetTheme_Auto(t *testing.T) {
	st := storage.NewMemory()
	s := New(context.Background(), st, WithLogger(testLogger()), WithSystemPreference(true))

	if err := s.SetTheme(context.Background(), Auto); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if got := s.Get(); got.Theme != Auto || !got.IsDark {
		t.Errorf("Get() = %+v, want auto/dark", got)
	}
	if raw, _ := st.Get(context.Background(), storage.KeyTheme); raw != "auto" {
		t.Errorf("persisted = %q, want auto", raw)
	}
}

func TestSetTheme_Unknown(t *testing.T) {
	s := New(context.Background(), storage.NewMemory(), WithLogger(testLogger()))

	err := s.SetTheme(context.Background(), Theme("sepia"))
	if !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("error = %v, want ErrUnknownTheme", err)
	}
}

func TestToggleTheme_FlipsAndPersistsOpposite(t *testing.T) {
	st := storage.NewMemory()
	ctx := context.Background()
	s := New(ctx, st, WithLogger(testLogger()), WithSystemPreference(true))
	_ = s.SetTheme(ctx, Auto)

	s.ToggleTheme(ctx)
	if got := s.Get(); got.IsDark || got.Theme != Light {
		t.Errorf("after first toggle = %+v, want light", got)
	}
	if raw, _ := st.Get(ctx, storage.KeyTheme); raw != "light" {
		t.Errorf("persisted = %q, want light", raw)
	}

	s.ToggleTheme(ctx)
	if got := s.Get(); !got.IsDark || got.Theme != Dark {
		t.Errorf("after second toggle = %+v, want dark", got)
	}
	if raw, _ := st.Get(ctx, storage.KeyTheme); raw != "dark" {
		t.Errorf("persisted = %q, want dark", raw)
	}
}

func TestSetSystemPreference(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemory(), WithLogger(testLogger()))

	notified := 0
	unsubscribe := s.Subscribe(func(State) { notified++ })
	defer unsubscribe()

	s.SetSystemPreference(true)
	if notified != 0 {
		t.Errorf("explicit theme notified %d times on system change", notified)
	}

	_ = s.SetTheme(ctx, Auto)
	notified = 0
	s.SetSystemPreference(false)
	if notified != 1 {
		t.Errorf("auto theme notified %d times, want 1", notified)
	}
	if s.Get().IsDark {
		t.Error("IsDark should follow system preference")
	}
}

type slowStorage struct {
	*storage.Memory
}

func (s slowStorage) Set(ctx context.Context, key, value string) error {
	time.Sleep(time.Millisecond)
	return s.Memory.Set(ctx, key, value)
}

func TestToggleTheme_Concurrent(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		st := slowStorage{storage.NewMemory()}
		s := New(ctx, st, WithLogger(testLogger()))

		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.ToggleTheme(ctx)
			}()
		}
		wg.Wait()

		if got := s.Get(); got.Theme != Light || got.IsDark {
			t.Fatalf("round %d: two toggles left %+v, want light", i, got)
		}
		if raw, _ := st.Get(ctx, storage.KeyTheme); raw != string(Light) {
			t.Fatalf("round %d: persisted %q, want light", i, raw)
		}
	}
}
