package artifact

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocksExclusive(t *testing.T) {
	var l Locks
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("/yuv_r/ref_dis_360.yuv")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected exclusive access, saw %d concurrent holders", maxActive)
	}
	if n := l.held(); n != 0 {
		t.Errorf("expected lock table to be empty, has %d entries", n)
	}
}

func TestLocksIndependentPaths(t *testing.T) {
	var l Locks
	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestLocksUnlockIdempotent(t *testing.T) {
	var l Locks
	unlock := l.Lock("a")
	unlock()
	unlock()

	unlock = l.Lock("a")
	unlock()
	if n := l.held(); n != 0 {
		t.Errorf("expected empty lock table, got %d", n)
	}
}
