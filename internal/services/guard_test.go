package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPassGuardSingleSlot(t *testing.T) {
	var g PassGuard

	if !g.TryStart() {
		t.Fatal("idle guard must admit a pass")
	}
	if g.TryStart() {
		t.Error("running guard must drop a second request")
	}
	if !g.Running() {
		t.Error("guard should report running")
	}
	g.Done()
	if !g.TryStart() {
		t.Error("guard must admit again after Done")
	}
	g.Done()
}

func TestPassGuardConcurrent(t *testing.T) {
	var g PassGuard
	var admitted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryStart() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	if admitted.Load() != 1 {
		t.Errorf("admitted = %d, want exactly 1", admitted.Load())
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { runs.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 coalesced run", got)
	}

	// A later trigger fires again.
	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { runs.Add(1) })

	d.Trigger()
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs = %d after Stop, want 0", got)
	}
}
