// SPDX-License-Identifier: MIT
package events

import (
	"errors"
	"sync"
	"testing"
)

func TestEmptyChannel(t *testing.T) {
	c := New[int]()

	if v, ok := c.TryRecv(); ok {
		t.Errorf("TryRecv on empty channel returned %d", v)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if n := c.Drain(func(int) { t.Error("Drain called fn on empty channel") }); n != 0 {
		t.Errorf("Drain returned %d, want 0", n)
	}
}

func TestFIFOOrder(t *testing.T) {
	c := New[string]()
	for _, s := range []string{"volume", "tempo", "reset"} {
		if err := c.Send(s); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}

	var got []string
	n := c.Drain(func(s string) { got = append(got, s) })
	if n != 3 {
		t.Errorf("Drain returned %d, want 3", n)
	}
	want := []string{"volume", "tempo", "reset"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %q, want %q", i, got[i], want[i])
		}
	}
	if c.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", c.Len())
	}
}

func TestSendAfterClose(t *testing.T) {
	c := New[int]()
	_ = c.Send(1)

	c.Close()
	c.Close() // idempotent

	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := c.Send(2); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("Send after Close = %v, want ErrReceiverClosed", err)
	}
	if _, ok := c.TryRecv(); ok {
		t.Error("values queued before Close should be discarded")
	}
}

func TestInterleavedSendRecv(t *testing.T) {
	c := New[int]()

	for i := range 10 {
		_ = c.Send(i)
		v, ok := c.TryRecv()
		if !ok || v != i {
			t.Fatalf("TryRecv = (%d, %v), want (%d, true)", v, ok, i)
		}
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 100_000
	c := New[int]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range total {
			if err := c.Send(i); err != nil {
				t.Errorf("Send error: %v", err)
				return
			}
		}
	}()

	next := 0
	for next < total {
		c.Drain(func(v int) {
			if v != next {
				t.Fatalf("out of order: got %d, want %d", v, next)
			}
			next++
		})
	}
	wg.Wait()
}

func TestProducerObservesClose(t *testing.T) {
	c := New[int]()

	done := make(chan error)
	go func() {
		for {
			if err := c.Send(0); err != nil {
				done <- err
				return
			}
		}
	}()

	c.Drain(func(int) {})
	c.Close()

	if err := <-done; !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("producer stopped with %v, want ErrReceiverClosed", err)
	}
}

func TestTryRecvZeroAllocations(t *testing.T) {
	c := New[int]()
	allocs := testing.AllocsPerRun(100, func() {
		c.TryRecv()
	})
	if allocs > 0 {
		t.Errorf("TryRecv allocates %.1f times, want 0", allocs)
	}
}

func BenchmarkSendRecv(b *testing.B) {
	c := New[int]()
	b.ReportAllocs()
	for b.Loop() {
		_ = c.Send(1)
		c.TryRecv()
	}
}
