package widgets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jpalmerr/halolight/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaults_AreValid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(d.Widgets) != 5 || len(d.Layouts) != 5 {
		t.Errorf("defaults = %d widgets, %d layouts", len(d.Widgets), len(d.Layouts))
	}
}

func TestSetLayouts(t *testing.T) {
	st := storage.NewMemory()
	ctx := context.Background()
	s := New(ctx, st, WithLogger(testLogger()))

	layouts := Defaults().Layouts
	layouts[0].W = 12
	layouts[1].Y = 4
	if err := s.SetLayouts(ctx, layouts); err != nil {
		t.Fatalf("SetLayouts() error = %v", err)
	}
	if got := s.Get().Layouts[0].W; got != 12 {
		t.Errorf("W = %d, want 12", got)
	}

	restored := New(ctx, st, WithLogger(testLogger()))
	if got := restored.Get().Layouts[0].W; got != 12 {
		t.Errorf("restored W = %d, want 12", got)
	}
}

func TestSetLayouts_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"unknown widget", Layout{I: "ghost", W: 1, H: 1}},
		{"too wide", Layout{I: "tasks-1", X: 8, W: 6, H: 1}},
		{"zero height", Layout{I: "tasks-1", W: 2, H: 0}},
		{"negative x", Layout{I: "tasks-1", X: -1, W: 2, H: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := New(ctx, storage.NewMemory(), WithLogger(testLogger()))

			notified := 0
			unsubscribe := s.Subscribe(func(State) { notified++ })
			defer unsubscribe()

			err := s.SetLayouts(ctx, []Layout{tt.layout})
			if !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("error = %v, want ErrInvalidLayout", err)
			}
			if notified != 0 {
				t.Errorf("notified %d times on invalid layout", notified)
			}
			if len(s.Get().Layouts) != 5 {
				t.Error("layouts changed on invalid input")
			}
		})
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemory(), WithLogger(testLogger()))
	_ = s.SetLayouts(ctx, []Layout{{I: "tasks-1", W: 12, H: 2}})

	s.Reset(ctx)
	if got := s.Get(); len(got.Layouts) != 5 || got.Layouts[0] != Defaults().Layouts[0] {
		t.Errorf("Get() after reset = %+v", got)
	}
}

func TestNew_CorruptDocument(t *testing.T) {
	st := storage.NewMemory()
	_ = st.Set(context.Background(), storage.KeyDashboard, `{"widgets":[],"layouts":[{"i":"x"}]}`)

	s := New(context.Background(), st, WithLogger(testLogger()))
	if got := len(s.Get().Widgets); got != 5 {
		t.Errorf("widgets = %d, want defaults", got)
	}
}
