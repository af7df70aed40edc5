// Package storagetest holds the behaviour every ports.StateStore must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/randomtoy/raffle-go/internal/ports"
)

// Run exercises a StateStore built by open. open is called once per subtest.
func Run(t *testing.T, open func(t *testing.T) ports.StateStore) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(context.Background(), "nope"); !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on delete, got %v", err)
		}
	})

	t.Run("put get overwrite delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Put(ctx, "session/a", []byte(`{"v":1}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := s.Put(ctx, "session/a", []byte(`{"v":2}`)); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, err := s.Get(ctx, "session/a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != `{"v":2}` {
			t.Errorf("expected overwritten value, got %s", got)
		}

		if err := s.Delete(ctx, "session/a"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "session/a"); !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_ = s.Put(ctx, "settings", []byte("x"))
		_ = s.Put(ctx, "session/b", []byte("y"))
		if err := s.Delete(ctx, "session/b"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		got, err := s.Get(ctx, "settings")
		if err != nil || string(got) != "x" {
			t.Fatalf("settings disturbed: %q %v", got, err)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_ = s.Put(ctx, "k", []byte("abc"))
		got, _ := s.Get(ctx, "k")
		got[0] = 'z'
		again, _ := s.Get(ctx, "k")
		if string(again) != "abc" {
			t.Errorf("stored value changed through returned slice: %s", again)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := s.Put(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
