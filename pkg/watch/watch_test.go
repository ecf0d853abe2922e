package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func tempSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.asm")
	if err := os.WriteFile(path, []byte("start: hlt\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestStatBackendDetectsChange(t *testing.T) {
	path := tempSource(t)
	b, err := newStatBackend(path)
	if err != nil {
		t.Fatalf("newStatBackend: %v", err)
	}

	if changed, err := b.poll(); err != nil || changed {
		t.Fatalf("poll() = %v, %v before any change", changed, err)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if changed, err := b.poll(); err != nil || !changed {
		t.Errorf("poll() = %v, %v after touch; want true", changed, err)
	}
	if changed, _ := b.poll(); changed {
		t.Error("poll() reported the same change twice")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if changed, err := b.poll(); err != nil || changed {
		t.Errorf("poll() = %v, %v while file is missing", changed, err)
	}
	if err := os.WriteFile(path, []byte("start: nop\nhlt\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if changed, _ := b.poll(); !changed {
		t.Error("poll() missed the recreated file")
	}
}

func TestDebounceCollapsesBursts(t *testing.T) {
	var calls int32
	w := newWatcher("prog.asm", &statBackend{}, func(string) { atomic.AddInt32(&calls, 1) })
	w.debounce = 20 * time.Millisecond

	for i := 0; i < 5; i++ {
		w.trigger()
	}
	time.Sleep(200 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("callbacks = %d; want 1", got)
	}
}

func TestCallbacksDoNotOverlap(t *testing.T) {
	var calls, active, overlaps int32
	w := newWatcher("prog.asm", &statBackend{}, func(string) {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&calls, 1)
	})
	w.debounce = time.Millisecond

	w.trigger()
	time.Sleep(20 * time.Millisecond) // first callback is now running
	w.trigger()
	time.Sleep(300 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("callbacks = %d; want 2", got)
	}
	if got := atomic.LoadInt32(&overlaps); got != 0 {
		t.Errorf("%d callbacks ran while another was still running", got)
	}
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	path := tempSource(t)
	changed := make(chan string, 1)
	w, err := New(path, func(p string) {
		select {
		case changed <- p:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	later := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("start: nop\nhlt\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case got := <-changed:
		if got != w.path {
			t.Errorf("callback path = %q; want %q", got, w.path)
		}
	case <-time.After(5 * time.Second):
		t.Error("no change notification within 5s")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
}
