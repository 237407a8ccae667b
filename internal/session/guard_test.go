package session

import (
	"sync"
	"testing"
)

func TestGuardSingleWinnerUnderContention(t *testing.T) {
	var g Guard
	var wg sync.WaitGroup
	wins := make(chan struct{}, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("%d goroutines acquired the latch, want 1", won)
	}
	if !g.InFlight() {
		t.Fatal("latch not held after acquisition")
	}

	g.Release()
	if !g.TryAcquire() {
		t.Fatal("latch not reusable after release")
	}
}
