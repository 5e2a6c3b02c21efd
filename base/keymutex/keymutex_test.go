package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	req := require.New(t)

	km := New()
	count := 0

	wg := sync.WaitGroup{}
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("auction-1")
			defer unlock()
			count++
		}()
	}
	wg.Wait()

	req.Equal(64, count)
}

func TestLockReleasesEntry(t *testing.T) {
	req := require.New(t)

	km := New()

	unlock := km.Lock("listing-1")
	unlock()

	req.Empty(km.locks)
}

func TestLockDistinctKeysDoNotBlock(t *testing.T) {
	req := require.New(t)

	km := New()

	unlockA := km.Lock("a")
	unlockB := km.Lock("b")

	req.Len(km.locks, 2)

	unlockA()
	unlockB()
}
