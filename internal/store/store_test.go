package store

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type counter struct {
	N     int
	Items []string
}

func cloneCounter(c counter) counter {
	c.Items = slices.Clone(c.Items)
	return c
}

func newCounterStore() *Store[counter] {
	return New("counter", counter{}, WithClone(cloneCounter), WithLogger[counter](testLogger()))
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := newCounterStore()
	s.Set(counter{N: 1, Items: []string{"a"}})

	got := s.Get()
	got.Items[0] = "mutated"
	got.N = 99

	again := s.Get()
	if again.N != 1 || again.Items[0] != "a" {
		t.Errorf("Get() leaked a live reference: %+v", again)
	}
}

func TestStore_EveryListenerNotifiedOncePerMutation(t *testing.T) {
	s := newCounterStore()

	var got1, got2 []int
	s.Subscribe(func(c counter) { got1 = append(got1, c.N) })
	s.Subscribe(func(c counter) { got2 = append(got2, c.N) })

	for i := 1; i <= 3; i++ {
		s.Update(func(c counter) (counter, bool) {
			c.N = i
			return c, true
		})
		if s.Get().N != i {
			t.Fatalf("Get().N = %d, want %d", s.Get().N, i)
		}
	}

	want := []int{1, 2, 3}
	if !slices.Equal(got1, want) {
		t.Errorf("listener 1 received %v, want %v", got1, want)
	}
	if !slices.Equal(got2, want) {
		t.Errorf("listener 2 received %v, want %v", got2, want)
	}
}

func TestStore_ListenerSeesStateMatchingGet(t *testing.T) {
	s := newCounterStore()

	var mismatch bool
	s.Subscribe(func(c counter) {
		if c.N != s.Get().N {
			mismatch = true
		}
	})

	s.Set(counter{N: 5})
	s.Set(counter{N: 6})

	if mismatch {
		t.Error("listener state did not match Get() taken after the mutation")
	}
}

func TestStore_UpdateWithoutChangeDoesNotNotify(t *testing.T) {
	s := newCounterStore()

	calls := 0
	s.Subscribe(func(counter) { calls++ })

	_, changed := s.Update(func(c counter) (counter, bool) { return c, false })
	if changed {
		t.Error("Update() reported a change")
	}
	if calls != 0 {
		t.Errorf("listener called %d times, want 0", calls)
	}
}

func TestStore_UnsubscribeIsIdempotent(t *testing.T) {
	s := newCounterStore()

	calls := 0
	unsubscribe := s.Subscribe(func(counter) { calls++ })
	other := 0
	s.Subscribe(func(counter) { other++ })

	s.Set(counter{N: 1})
	unsubscribe()
	unsubscribe()
	s.Set(counter{N: 2})

	if calls != 1 {
		t.Errorf("unsubscribed listener called %d times, want 1", calls)
	}
	if other != 2 {
		t.Errorf("remaining listener called %d times, want 2", other)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_ListenerPanicDoesNotStopDelivery(t *testing.T) {
	s := newCounterStore()

	s.Subscribe(func(counter) { panic("boom") })
	delivered := false
	s.Subscribe(func(counter) { delivered = true })

	s.Set(counter{N: 1})

	if !delivered {
		t.Error("second listener should still receive the update")
	}
}

func TestStore_ChangeHook(t *testing.T) {
	var names []string
	s := New("hooked", 0, WithChangeHook[int](func(name string) { names = append(names, name) }))

	s.Set(1)
	s.Set(2)

	if !slices.Equal(names, []string{"hooked", "hooked"}) {
		t.Errorf("hook names = %v", names)
	}
}

func TestStore_Watch(t *testing.T) {
	s := newCounterStore()

	ch, cancel := s.Watch(4)
	defer cancel()

	go s.Set(counter{N: 7})

	select {
	case c := <-ch:
		if c.N != 7 {
			t.Errorf("received N = %d, want 7", c.N)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() channel did not receive update")
	}
}

func TestStore_WatchCancelClosesChannel(t *testing.T) {
	s := newCounterStore()

	ch, cancel := s.Watch(1)
	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("channel should be closed immediately")
	}

	// must not panic on a closed watcher
	s.Set(counter{N: 1})
}

func TestStore_SlowWatcherDoesNotBlock(t *testing.T) {
	s := newCounterStore()

	_, cancel := s.Watch(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			s.Set(counter{N: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Set() blocked on slow watcher")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newCounterStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(func(c counter) (counter, bool) {
					c.N++
					c.Items = append(c.Items, "x")
					return c, true
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Get()
			}
		}()
		go func() {
			defer wg.Done()
			unsubscribe := s.Subscribe(func(counter) {})
			ch, cancel := s.Watch(2)
			_ = ch
			time.Sleep(5 * time.Millisecond)
			unsubscribe()
			cancel()
		}()
	}
	wg.Wait()

	if got := s.Get().N; got != 1000 {
		t.Errorf("Get().N = %d, want 1000", got)
	}
}
