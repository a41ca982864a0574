package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopRunsDeferredTask(t *testing.T) {
	l := NewLoop(8)
	defer l.Close()

	done := make(chan struct{})
	l.Defer(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deferred task never ran")
	}
}

func TestLoopPreservesOrder(t *testing.T) {
	l := NewLoop(8)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		l.Defer(func() {
			got = append(got, i)
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not finish")
	}
	l.Close()

	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestLoopCloseDrainsQueue(t *testing.T) {
	l := NewLoop(64)
	var ran atomic.Int64
	for i := 0; i < 20; i++ {
		l.Defer(func() { ran.Add(1) })
	}
	l.Close()
	if ran.Load() != 20 {
		t.Errorf("ran = %d, want 20", ran.Load())
	}

	// 关闭后提交被丢弃
	l.Defer(func() { ran.Add(1) })
	if ran.Load() != 20 {
		t.Errorf("task ran after close")
	}
}

func TestManualDoesNotRunUntilFlush(t *testing.T) {
	m := NewManual()
	var ran bool
	m.Defer(func() { ran = true })

	if ran {
		t.Fatal("task ran synchronously with Defer")
	}
	if m.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", m.Pending())
	}

	if n := m.Flush(); n != 1 {
		t.Fatalf("Flush = %d, want 1", n)
	}
	if !ran {
		t.Fatal("task did not run on Flush")
	}
	if m.Pending() != 0 {
		t.Fatalf("Pending after Flush = %d, want 0", m.Pending())
	}
}

func TestManualFlushKeepsOrderAndDefersNested(t *testing.T) {
	m := NewManual()
	var got []string
	m.Defer(func() {
		got = append(got, "a")
		m.Defer(func() { got = append(got, "nested") })
	})
	m.Defer(func() { got = append(got, "b") })

	m.Flush()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("first flush got %v", got)
	}

	m.Flush()
	if len(got) != 3 || got[2] != "nested" {
		t.Fatalf("second flush got %v", got)
	}
}
