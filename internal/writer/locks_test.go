package writer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestKeyedMutex tests per-key serialization and entry cleanup
func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("UFC 300")
	assert.Equal(t, 1, k.size())

	// other keys are independent
	other := k.Lock("UFC 301")
	assert.Equal(t, 2, k.size())
	other()

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("UFC 300")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, time.Millisecond)
}

// TestKeyedMutex_Concurrent tests that a counter guarded per key stays consistent
func TestKeyedMutex_Concurrent(t *testing.T) {
	k := newKeyedMutex()
	counts := make(map[string]int)
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := []string{"a", "b", "c"}[i%3]
			unlock := k.Lock(key)
			defer unlock()

			mu.Lock()
			counts[key]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 34, counts["a"])
	assert.Equal(t, 33, counts["b"])
	assert.Equal(t, 33, counts["c"])
	assert.Equal(t, 0, k.size())
}
